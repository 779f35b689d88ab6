package config

import (
	"strconv"
	"strings"

	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// DefaultJobs returns the parallelism for builds: CMK_DEFAULT_JOBS when
// set, otherwise one less than numCPU but at least one.
func DefaultJobs(environ map[string]string, numCPU int) (int, error) {
	if v, ok := environ[EnvDefaultJobs]; ok {
		return ParseJobs(v)
	}
	return max(numCPU-1, 1), nil
}

// ParseJobs parses a positive job count.
func ParseJobs(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, cmkerr.Newf(cmkerr.InvalidJobCount, s, "%s must be a positive integer", EnvDefaultJobs)
	}
	return n, nil
}
