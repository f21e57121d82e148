package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/hsiuhsiu/openssl-go/pkg/openssl"

// secretPackages handle key material and digests.
var secretPackages = []string{
	modulePath + "/hash",
	modulePath + "/symm",
	modulePath + "/pkey",
}

func load(t *testing.T, mode packages.LoadMode, patterns ...string) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{Mode: mode}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("packages %v did not load cleanly", patterns)
	}
	return pkgs
}
