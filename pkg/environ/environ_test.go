package environ_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/cmk/pkg/config"
	"github.com/albertocavalcante/cmk/pkg/environ"
)

func TestBuild(t *testing.T) {
	inherited := environ.Environment{"PATH": "/usr/bin", "HOME": "/home/u", "EMPTY": ""}

	tests := []struct {
		name       string
		directives config.Layer
		want       environ.Environment
	}{
		{
			name:       "set overrides",
			directives: config.Layer{"HOME": config.SetTo("/tmp")},
			want:       environ.Environment{"PATH": "/usr/bin", "HOME": "/tmp", "EMPTY": ""},
		},
		{
			name:       "prepend before inherited",
			directives: config.Layer{"PATH": config.PrependOf("Y", "X")},
			want:       environ.Environment{"PATH": "Y:X:/usr/bin", "HOME": "/home/u", "EMPTY": ""},
		},
		{
			name:       "append after inherited",
			directives: config.Layer{"PATH": config.AppendOf("/opt/bin")},
			want:       environ.Environment{"PATH": "/usr/bin:/opt/bin", "HOME": "/home/u", "EMPTY": ""},
		},
		{
			name:       "empty inherited is not joined",
			directives: config.Layer{"EMPTY": config.PrependOf("a"), "NEW": config.AppendOf("b", "c")},
			want:       environ.Environment{"PATH": "/usr/bin", "HOME": "/home/u", "EMPTY": "a", "NEW": "b:c"},
		},
		{
			name:       "no directives",
			directives: nil,
			want:       inherited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := environ.Build(tt.directives, inherited, ":")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if inherited["PATH"] != "/usr/bin" {
		t.Error("Build() modified the inherited environment")
	}
}

func TestFromSliceAndSlice(t *testing.T) {
	env := environ.FromSlice([]string{"B=2", "A=1", "junk", "C=x=y", "A=3", "=hidden"})

	want := []string{"A=3", "B=2", "C=x=y"}
	if diff := cmp.Diff(want, env.Slice()); diff != "" {
		t.Errorf("Slice() mismatch (-want +got):\n%s", diff)
	}
}

func TestDelta(t *testing.T) {
	env := environ.Environment{"PATH": "/x:/usr/bin", "HOME": "/home/u", "CC": "clang"}
	got := environ.Delta(env, config.Layer{"PATH": config.PrependOf("/x"), "CC": config.SetTo("clang")})

	if diff := cmp.Diff([]string{"CC=clang", "PATH=/x:/usr/bin"}, got); diff != "" {
		t.Errorf("Delta() mismatch (-want +got):\n%s", diff)
	}
}
