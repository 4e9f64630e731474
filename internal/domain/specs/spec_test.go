package specs

import "testing"

func TestCanonicalDependencyType(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"run", "build"}, "build,run"},
		{[]string{"Link", "build", "link", " "}, "build,link"},
		{nil, ""},
	}
	for _, c := range cases {
		if got := CanonicalDependencyType(c.in); got != c.want {
			t.Fatalf("CanonicalDependencyType(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDependencyTypes(t *testing.T) {
	d := Dependency{DependencyType: "build,link"}
	got := d.Types()
	if len(got) != 2 || got[0] != "build" || got[1] != "link" {
		t.Fatalf("Types() = %v", got)
	}
	if len((Dependency{}).Types()) != 0 {
		t.Fatal("empty type set should split to nothing")
	}
}
