package scoring

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUnknownProfile = errors.New("unknown scoring profile")

// ProfileFile is the on-disk layout of a profiles file.
type ProfileFile struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// Registry holds the named profiles the service can score with. It is safe
// for concurrent use and can be swapped wholesale on reload.
type Registry struct {
	mu          sync.RWMutex
	profiles    map[string]Profile
	defaultName string
	// pinned is set by SetDefault and wins over the file default on reload.
	pinned string
}

// NewRegistry returns a registry seeded with the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{}
	r.set(BuiltinProfiles(), ProfileStandard)
	return r
}

// LoadProfiles parses and validates a profiles file. The built-in profiles
// stay available unless the file redefines them.
func LoadProfiles(path string) (ProfileFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ProfileFile{}, fmt.Errorf("read profiles: %w", err)
	}
	var file ProfileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return ProfileFile{}, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	seen := map[string]bool{}
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return ProfileFile{}, err
		}
		if seen[p.Name] {
			return ProfileFile{}, fmt.Errorf("profile %s defined twice", p.Name)
		}
		seen[p.Name] = true
	}
	if file.Default == "" {
		file.Default = ProfileStandard
	}
	if !seen[file.Default] && !isBuiltin(file.Default) {
		return ProfileFile{}, fmt.Errorf("default profile %s: %w", file.Default, ErrUnknownProfile)
	}
	return file, nil
}

// Load replaces the registry contents with the profiles in path. A default
// pinned with SetDefault is kept as long as the new set still defines it.
func (r *Registry) Load(path string) error {
	file, err := LoadProfiles(path)
	if err != nil {
		return err
	}
	r.set(append(BuiltinProfiles(), file.Profiles...), file.Default)
	return nil
}

func (r *Registry) set(profiles []Profile, defaultName string) {
	next := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		next[p.Name] = p
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := next[r.pinned]; ok {
		defaultName = r.pinned
	}
	r.profiles = next
	r.defaultName = defaultName
}

// Get resolves name, falling back to the default profile when name is empty.
func (r *Registry) Get(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

func (r *Registry) Default() Profile {
	p, err := r.Get("")
	if err != nil {
		return DefaultProfile()
	}
	return p
}

// SetDefault switches the default profile to an already registered one and
// keeps it across later reloads.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	r.defaultName = name
	r.pinned = name
	return nil
}

// List returns the profiles sorted by name.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

func isBuiltin(name string) bool {
	return name == ProfileStandard || name == ProfileRated
}
