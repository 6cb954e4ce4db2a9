package source

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://drive.google.com/uc?id=1JRI_yTUKrj94ocfMLa1Llh9jRU-z4FOd",
			"https://drive.google.com/uc?export=download&id=1JRI_yTUKrj94ocfMLa1Llh9jRU-z4FOd"},
		{"https://drive.google.com/file/d/abc-123_X/view?usp=sharing",
			"https://drive.google.com/uc?export=download&id=abc-123_X"},
		{"https://drive.google.com/open?id=XYZ",
			"https://drive.google.com/uc?export=download&id=XYZ"},
		{"https://docs.google.com/spreadsheets/d/SHEET_1/edit#gid=0",
			"https://docs.google.com/spreadsheets/d/SHEET_1/export?format=csv&gid=0"},
		{"https://docs.google.com/spreadsheets/d/SHEET_1/edit?usp=sharing",
			"https://docs.google.com/spreadsheets/d/SHEET_1/export?format=csv&gid=0"},
		{"https://docs.google.com/spreadsheets/d/SHEET_1/edit#gid=1234",
			"https://docs.google.com/spreadsheets/d/SHEET_1/export?format=csv&gid=1234"},
		{"  https://example.com/iw58.csv ", "https://example.com/iw58.csv"},
		{"https://drive.google.com/drive/folders", "https://drive.google.com/drive/folders"},
		{"./data/iw58.csv", "./data/iw58.csv"},
		{"file:///tmp/iw58.csv", "/tmp/iw58.csv"},
	}
	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	in := "https://drive.google.com/file/d/abc/view"
	once := NormalizeURL(in)
	if twice := NormalizeURL(once); twice != once {
		t.Fatalf("not idempotent: %q -> %q", once, twice)
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("HTTPS://x") || IsRemote("/tmp/a.csv") || IsRemote("C:\\data\\a.csv") {
		t.Fatalf("unexpected IsRemote results")
	}
}
