package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/albertocavalcante/cmk/pkg/environ"
)

// EnvOptions configures PrintEnv.
type EnvOptions struct {
	BuildDir string
	// Target selects the env.run.<target> layer.
	Target string
	// Build prints the build environment instead of the run environment.
	Build bool
	JSON  bool
}

// PrintEnv writes the variables the configuration sets, with their final
// values, as KEY=VALUE lines or a JSON object.
func (s *Session) PrintEnv(ctx context.Context, opts EnvOptions) error {
	dir, err := s.BuildDir(ctx, opts.BuildDir, nil)
	if err != nil {
		return err
	}
	resolved, err := s.Resolve(dir)
	if err != nil {
		return err
	}

	layer := resolved.RunEnv(opts.Target)
	if opts.Build {
		layer = resolved.BuildEnv()
	}
	env := s.Env(layer)

	if opts.JSON {
		delta := make(map[string]string, len(layer))
		for name := range layer {
			delta[name] = env[name]
		}
		enc := json.NewEncoder(s.in.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(delta)
	}
	for _, kv := range environ.Delta(env, layer) {
		if _, err := fmt.Fprintln(s.in.Stdout, kv); err != nil {
			return err
		}
	}
	return nil
}
