// Package version describes the client to the gateway.
package version

import "fmt"

type Version struct {
	Major, Minor, Patch int
}

func (v *Version) String() string {
	return fmt.Sprintf("%v.%v.%v", v.Major, v.Minor, v.Patch)
}

type Info struct {
	Name       string
	Version    Version
	Vendor     string
	SupportURL string
}

// Default describes this library.
func Default() Info {
	return Info{
		Name:       "lotus",
		Version:    Version{Major: 0, Minor: 1, Patch: 0},
		Vendor:     "Lotus Mail",
		SupportURL: "https://github.com/lotusmail/lotus",
	}
}

// UserAgent is sent in the User-Agent header of the WebSocket handshake.
func (i Info) UserAgent() string {
	if i.SupportURL == "" {
		return fmt.Sprintf("%v/%v", i.Name, i.Version.String())
	}

	return fmt.Sprintf("%v/%v (+%v)", i.Name, i.Version.String(), i.SupportURL)
}
