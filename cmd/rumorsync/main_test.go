package main

import "testing"

func TestResolveMaxAge(t *testing.T) {
	tests := []struct {
		name          string
		flag          int
		env           string
		configDefault int
		want          int
	}{
		{"flag wins", 6, "12", 24, 6},
		{"env over config", 0, "12", 24, 12},
		{"config default", 0, "", 24, 24},
		{"invalid env falls through", 0, "soon", 24, 24},
		{"negative flag falls through", -5, "", 24, 24},
		{"negative flag then env", -5, "12", 24, 12},
		{"negative env falls through", 0, "-3", 24, 24},
		{"hard default", 0, "", 0, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveMaxAge(tt.flag, tt.env, tt.configDefault); got != tt.want {
				t.Errorf("resolveMaxAge(%d, %q, %d) = %d, want %d",
					tt.flag, tt.env, tt.configDefault, got, tt.want)
			}
		})
	}
}
