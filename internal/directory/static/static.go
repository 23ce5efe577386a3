// Package static is a file-backed directory for development and tests.
package static

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"principalcheck/internal/directory"
	"principalcheck/internal/principal/models"
)

// File is the YAML document layout.
//
//	users:
//	  - id: alice
//	    unique_name: alice@example.com
//	    display_name: Alice Example
//	groups:
//	  - id: admins
//	    display_name: Administrators
//	undecidable: [legacy-team]
//	failures:
//	  - name: broken
//	    reason: realm credentials expired
type File struct {
	Users       []UserEntry    `yaml:"users"`
	Groups      []GroupEntry   `yaml:"groups"`
	Undecidable []string       `yaml:"undecidable"`
	Failures    []FailureEntry `yaml:"failures"`
}

type UserEntry struct {
	ID          string `yaml:"id"`
	UniqueName  string `yaml:"unique_name"`
	DisplayName string `yaml:"display_name"`
}

type GroupEntry struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
}

// FailureEntry makes lookups of Name fail with an AuthError.
type FailureEntry struct {
	Name   string `yaml:"name"`
	Reason string `yaml:"reason"`
}

// Directory answers lookups from an in-memory snapshot of a File. It is
// read-only after construction and safe for concurrent use.
type Directory struct {
	users       map[string]models.User
	groups      map[string]models.Group
	undecidable map[string]struct{}
	failures    map[string]string
}

// Load reads and parses a YAML directory file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Directory from YAML bytes. Unknown keys are rejected.
func Parse(data []byte) (*Directory, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse directory file: %w", err)
	}
	return New(f)
}

// New builds a Directory from an already decoded File.
func New(f File) (*Directory, error) {
	d := &Directory{
		users:       make(map[string]models.User),
		groups:      make(map[string]models.Group),
		undecidable: make(map[string]struct{}),
		failures:    make(map[string]string),
	}
	for i, u := range f.Users {
		if strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("users[%d]: id is required", i)
		}
		user := models.User{ID: u.ID, UniqueName: u.UniqueName, DisplayName: u.DisplayName}
		if user.UniqueName == "" {
			user.UniqueName = u.ID
		}
		d.users[key(u.ID)] = user
		d.users[key(user.UniqueName)] = user
	}
	for i, g := range f.Groups {
		if strings.TrimSpace(g.ID) == "" {
			return nil, fmt.Errorf("groups[%d]: id is required", i)
		}
		group := models.Group{ID: g.ID, DisplayName: g.DisplayName}
		if group.DisplayName == "" {
			group.DisplayName = g.ID
		}
		d.groups[key(g.ID)] = group
		d.groups[key(group.DisplayName)] = group
	}
	for _, name := range f.Undecidable {
		d.undecidable[key(name)] = struct{}{}
	}
	for _, fe := range f.Failures {
		d.failures[key(fe.Name)] = fe.Reason
	}
	return d, nil
}

// LookupGroup implements directory.Directory.
func (d *Directory) LookupGroup(ctx context.Context, name string) (*models.Group, error) {
	if err := d.precheck(ctx, name); err != nil {
		return nil, err
	}
	g, ok := d.groups[key(name)]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &g, nil
}

// LookupUser implements directory.Directory.
func (d *Directory) LookupUser(ctx context.Context, name string) (*models.User, error) {
	if err := d.precheck(ctx, name); err != nil {
		return nil, err
	}
	u, ok := d.users[key(name)]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &u, nil
}

func (d *Directory) precheck(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return directory.NewAuthError("lookup aborted", err)
	}
	k := key(name)
	if reason, ok := d.failures[k]; ok {
		return directory.NewAuthError(reason, nil)
	}
	if _, ok := d.undecidable[k]; ok {
		return directory.ErrUndecidable
	}
	return nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
