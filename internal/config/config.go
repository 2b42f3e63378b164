// Package config builds and validates the immutable Config shared by
// every request (spec §3), following the teacher's pattern of
// separating raw CLI input from a validated, constructed value.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/afero"
)

// RawArgs is the CLI-shaped input, validated before being turned into
// a Config. Struct tags mirror the teacher's validator wiring.
type RawArgs struct {
	Root         string `validate:"required"`
	Bind         string `validate:"required,ip"`
	Port         uint16 `validate:"required"`
	CacheMaxAge  uint64
	CORS         bool
	COI          bool
	Compress     bool
	All          bool
	Ignore       bool
	FollowLinks  bool
	RenderIndex  bool
	Log          bool
	PathPrefix   string
	UserStyle    string
	Watch        bool
}

// Config is the immutable, process-lifetime configuration shared
// read-only by every request (spec §3).
type Config struct {
	Root         string
	Bind         string
	Port         uint16
	CacheMaxAge  uint64
	CORS         bool
	COI          bool
	Compress     bool
	All          bool
	Ignore       bool
	FollowLinks  bool
	RenderIndex  bool
	Log          bool
	PathPrefix   string
	UserStyle    string
	Watch        bool
}

// DefaultRawArgs mirrors the CLI flags table of spec §6.
func DefaultRawArgs() RawArgs {
	return RawArgs{
		Root:        ".",
		Bind:        "127.0.0.1",
		Port:        5000,
		CacheMaxAge: 0,
		Compress:    true,
	}
}

// Build validates raw and canonicalizes it into a Config. fs is used
// to confirm the serving root exists (afero.NewOsFs() in production,
// afero.NewMemMapFs() in tests).
func Build(raw RawArgs, fs afero.Fs) (*Config, error) {
	validate := validator.New()
	uni := ut.New(en.New(), en.New())
	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("config: registering translations: %w", err)
	}

	if err := validate.Struct(raw); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Translate(trans))
			}
			return nil, fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return nil, err
	}

	if net.ParseIP(raw.Bind) == nil {
		return nil, fmt.Errorf("config: %q is not a valid bind address", raw.Bind)
	}

	root, err := filepath.Abs(raw.Root)
	if err != nil {
		return nil, fmt.Errorf("config: resolving root: %w", err)
	}
	root = filepath.Clean(root)

	// Root must be the fully resolved (symlink-free) path, matching the
	// original's path.canonicalize(): pipeline.go's escape gate compares
	// filepath.EvalSymlinks(resolved) against Root, so an unresolved Root
	// (e.g. macOS /tmp -> /private/tmp) would make every legitimate
	// request fail withinRoot and 403. Fall back to the Abs+Clean path
	// if EvalSymlinks fails, same as the escape gate does.
	if canon, err := filepath.EvalSymlinks(root); err == nil {
		root = canon
	}

	fi, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("config: root %q does not exist: %w", root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("config: root %q is not a directory", root)
	}

	prefix := raw.PathPrefix
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	return &Config{
		Root:        root,
		Bind:        raw.Bind,
		Port:        raw.Port,
		CacheMaxAge: raw.CacheMaxAge,
		CORS:        raw.CORS,
		COI:         raw.COI,
		Compress:    raw.Compress,
		All:         raw.All,
		Ignore:      raw.Ignore,
		FollowLinks: raw.FollowLinks,
		RenderIndex: raw.RenderIndex,
		Log:         raw.Log,
		PathPrefix:  prefix,
		UserStyle:   raw.UserStyle,
		Watch:       raw.Watch,
	}, nil
}

// Addr returns the bind:port address for net.Listen.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
