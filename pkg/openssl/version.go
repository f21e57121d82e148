package openssl

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-version"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/internal/backend"
)

// WrapperVersion is populated at build time via ldflags.
var WrapperVersion = "v0.0.0-in-progress"

// Vendor names the library implementation linked in.
type Vendor string

const (
	VendorOpenSSL  Vendor = "OpenSSL"
	VendorLibreSSL Vendor = "LibreSSL"
	VendorNone     Vendor = ""
)

// Feature names a capability that depends on the linked library's version.
type Feature int

const (
	// FeatureTLS13 is TLS 1.3 and SSL_CTX_set_ciphersuites.
	FeatureTLS13 Feature = iota
	// FeatureKeylog is SSL_CTX_set_keylog_callback.
	FeatureKeylog
	// FeatureProtoVersionSetters is SSL_CTX_set_{min,max}_proto_version.
	FeatureProtoVersionSetters
	// FeatureGet1PeerCertificate is SSL_get1_peer_certificate.
	FeatureGet1PeerCertificate
)

func (f Feature) String() string {
	switch f {
	case FeatureTLS13:
		return "tls1.3"
	case FeatureKeylog:
		return "keylog"
	case FeatureProtoVersionSetters:
		return "proto-version-setters"
	case FeatureGet1PeerCertificate:
		return "get1-peer-certificate"
	default:
		return fmt.Sprintf("feature(%d)", int(f))
	}
}

// Minimum versions per vendor. A missing entry means never supported.
var featureConstraints = map[Vendor]map[Feature]string{
	VendorOpenSSL: {
		FeatureTLS13:               ">= 1.1.1",
		FeatureKeylog:              ">= 1.1.1",
		FeatureProtoVersionSetters: ">= 1.1.0",
		FeatureGet1PeerCertificate: ">= 3.0.0",
	},
	VendorLibreSSL: {
		FeatureTLS13:               ">= 3.2.0",
		FeatureProtoVersionSetters: ">= 2.6.0",
	},
}

var (
	versionOnce   sync.Once
	parsedVersion *version.Version
	parsedVendor  Vendor
	versionErr    error
)

func detect() {
	versionOnce.Do(func() {
		parsedVendor, parsedVersion, versionErr = parseVersionText(backend.Version(), backend.IsLibreSSL())
	})
}

// parseVersionText extracts the vendor and numeric version from text such as
// "OpenSSL 3.0.13 30 Jan 2024" or "LibreSSL 3.8.2". Letter suffixes like the
// "w" in 1.1.1w are patch letters and are dropped.
func parseVersionText(text string, libre bool) (Vendor, *version.Version, error) {
	if text == "" {
		return VendorNone, nil, ErrNotBuilt
	}
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return VendorNone, nil, fmt.Errorf("openssl: unrecognised version text %q", text)
	}
	vendor := VendorOpenSSL
	if libre || fields[0] == string(VendorLibreSSL) {
		vendor = VendorLibreSSL
	}
	num := strings.TrimRightFunc(fields[1], func(r rune) bool { return r < '0' || r > '9' })
	if i := strings.IndexFunc(num, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); i >= 0 {
		num = num[:i]
	}
	v, err := version.NewVersion(num)
	if err != nil {
		return vendor, nil, fmt.Errorf("openssl: parse version %q: %w", text, err)
	}
	return vendor, v, nil
}

// VersionText returns the version string of the linked library.
func VersionText() string { return backend.Version() }

// LibraryVersion returns the linked library's version.
func LibraryVersion() (*version.Version, error) {
	detect()
	return parsedVersion, versionErr
}

// LibraryVendor reports which implementation is linked in.
func LibraryVendor() Vendor {
	detect()
	return parsedVendor
}

// Supports reports whether the linked library provides f.
func Supports(f Feature) bool {
	detect()
	if versionErr != nil {
		return false
	}
	return supports(parsedVendor, parsedVersion, f)
}

func supports(vendor Vendor, v *version.Version, f Feature) bool {
	raw, ok := featureConstraints[vendor][f]
	if !ok {
		return false
	}
	c, err := version.NewConstraint(raw)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Require returns ErrUnsupported, naming f, when the linked library lacks f.
func Require(f Feature) error {
	if Supports(f) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, f)
}
