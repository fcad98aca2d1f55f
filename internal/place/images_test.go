package place

import "testing"

func TestImageKey(t *testing.T) {
	cases := []struct {
		name string
		id   string
		want string
	}{
		{"ASU-Poly", "1", "images/asu-poly/1"},
		{"  Tempe Town Lake ", "abc", "images/tempe-town-lake/abc"},
		{"a/b", "2", "images/a-b/2"},
	}

	for _, tc := range cases {
		if got := ImageKey(tc.name, tc.id); got != tc.want {
			t.Errorf("ImageKey(%q, %q) = %q; want %q", tc.name, tc.id, got, tc.want)
		}
	}
}
