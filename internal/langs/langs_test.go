package langs

import "testing"

func TestIsIgnoredDir(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".git", true},
		{".deps", true},
		{".cache", true},
		{"_deps", true},
		{"third_party", true},
		{"node_modules", true},
		{"build", false},
		{"build-release", false},
		{"src", false},
		{".", false},
	}

	for _, tt := range tests {
		if got := IsIgnoredDir(tt.name); got != tt.want {
			t.Errorf("IsIgnoredDir(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsTranslationUnit(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/proj/src/main.cc", true},
		{"/proj/src/legacy.c", true},
		{"/proj/src/view.mm", true},
		{"/proj/src/kernel.cu", true},
		{"/proj/src/start.S", true},
		{"/proj/include/app.hpp", false},
		{"/proj/include/app.h", false},
		{"/proj/CMakeLists.txt", false},
	}

	for _, tt := range tests {
		if got := IsTranslationUnit(tt.path); got != tt.want {
			t.Errorf("IsTranslationUnit(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
