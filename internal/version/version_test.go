// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import "testing"

func TestString(t *testing.T) {
	defer func(pre, build string) {
		PreRelease, BuildMetadata = pre, build
	}(PreRelease, BuildMetadata)

	tests := []struct {
		pre, build string
		want       string
	}{
		{"", "", "0.3.0"},
		{"beta", "", "0.3.0-beta"},
		{"rc.1", "", "0.3.0-rc1"},
		{"beta", "git.abc+def", "0.3.0-beta+git.abcdef"},
		{"", "@@", "0.3.0"},
	}
	for i, test := range tests {
		PreRelease, BuildMetadata = test.pre, test.build
		if got := String(); got != test.want {
			t.Errorf("String #%d: got %q, want %q", i, got, test.want)
		}
	}

	if got := UserAgentVersion(); got != "0.3.0" {
		t.Errorf("UserAgentVersion: got %q", got)
	}
}
