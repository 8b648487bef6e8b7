package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestShouldSkipConfig(t *testing.T) {
	root := newRootCommand()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"version"}, true},
		{[]string{"compose"}, true},
		{[]string{"gdrive-auth"}, true},
		{[]string{"serve"}, false},
		{[]string{"worker"}, false},
	}
	for _, tt := range tests {
		cmd, _, err := root.Find(tt.args)
		if err != nil {
			t.Fatalf("Find(%v): %v", tt.args, err)
		}
		if got := shouldSkipConfig(cmd); got != tt.want {
			t.Errorf("shouldSkipConfig(%s) = %v, want %v", cmd.Name(), got, tt.want)
		}
	}

	if !shouldSkipConfig(&cobra.Command{Use: "help"}) {
		t.Error("help should skip config")
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "pagemotion dev") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable(
		[]string{"Slide", "Output"},
		[][]string{{"1", "slide1.gif"}, {"2"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	for _, want := range []string{"SLIDE", "OUTPUT", "slide1.gif"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty table for no headers")
	}
}

func TestCallbackCode(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"ok", "?state=s1&code=abc", "abc", false},
		{"wrong state", "?state=other&code=abc", "", true},
		{"provider error", "?state=s1&error=access_denied", "", true},
		{"missing code", "?state=s1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/callback"+tt.query, nil)
			got, err := callbackCode(r, "s1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
}
