package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfo_UserAgent(t *testing.T) {
	tests := map[string]struct {
		info Info
		want string
	}{
		"default": {
			info: Default(),
			want: "lotus/0.1.0 (+https://github.com/lotusmail/lotus)",
		},
		"no support url": {
			info: Info{Name: "webmail", Version: Version{Major: 2, Minor: 10, Patch: 3}},
			want: "webmail/2.10.3",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.info.UserAgent())
		})
	}
}
