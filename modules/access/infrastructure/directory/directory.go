package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
	"github.com/jacksonlee411/tenantgate/modules/access/infrastructure/persistence"
)

// File format, version 1:
//
//	version: 1
//	tenants:
//	  - id: 7d4e...
//	    isolation_mode: collaborative
//	    active: true
//	    users:
//	      - id: 9a1b...
//	        role: admin
//	        active: true
type directoryFile struct {
	Version int           `yaml:"version"`
	Tenants []tenantEntry `yaml:"tenants"`
}

type tenantEntry struct {
	ID            string      `yaml:"id"`
	IsolationMode string      `yaml:"isolation_mode"`
	Active        *bool       `yaml:"active"`
	Users         []userEntry `yaml:"users"`
}

type userEntry struct {
	ID     string `yaml:"id"`
	Role   string `yaml:"role"`
	Active *bool  `yaml:"active"`
}

// Load reads a directory file and seeds a MemoryStore from it. Used by dev
// setups, tests and the CLI's offline mode; production reads Postgres.
func Load(path string) (*persistence.MemoryStore, error) {
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var df directoryFile
	if err := yaml.Unmarshal(b, &df); err != nil {
		return nil, err
	}
	if df.Version != 1 {
		return nil, errors.New("directory: unsupported version")
	}
	if len(df.Tenants) == 0 {
		return nil, errors.New("directory: no tenants")
	}

	store := persistence.NewMemoryStore()
	seenTenants := map[string]bool{}
	seenUsers := map[string]bool{}
	for _, te := range df.Tenants {
		if te.ID == "" {
			return nil, errors.New("directory: tenant missing id")
		}
		if seenTenants[te.ID] {
			return nil, fmt.Errorf("directory: duplicate tenant %q", te.ID)
		}
		seenTenants[te.ID] = true

		mode := types.IsolationCollaborative
		if te.IsolationMode != "" {
			m, ok := types.ParseIsolationMode(te.IsolationMode)
			if !ok {
				return nil, fmt.Errorf("directory: tenant %q: invalid isolation_mode %q", te.ID, te.IsolationMode)
			}
			mode = m
		}
		store.SeedTenant(types.Tenant{
			ID:            te.ID,
			IsolationMode: mode,
			Active:        activeOrDefault(te.Active),
			UpdatedAt:     time.Now().UTC(),
		})

		for _, ue := range te.Users {
			if ue.ID == "" {
				return nil, fmt.Errorf("directory: tenant %q: user missing id", te.ID)
			}
			if seenUsers[ue.ID] {
				return nil, fmt.Errorf("directory: duplicate user %q", ue.ID)
			}
			seenUsers[ue.ID] = true
			role, ok := types.ParseRole(ue.Role)
			if !ok {
				return nil, fmt.Errorf("directory: user %q: invalid role %q", ue.ID, ue.Role)
			}
			store.SeedUser(types.User{
				ID:       ue.ID,
				TenantID: te.ID,
				Role:     role,
				Active:   activeOrDefault(ue.Active),
			})
		}
	}
	return store, nil
}

func activeOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

func defaultPath() (string, error) {
	path := "config/directory.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("directory: config not found")
}
