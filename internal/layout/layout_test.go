package layout

import "testing"

func TestFanOut(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"abcd1234.jpg", "ab/cd"},
		{"ABCD.jpg", "ab/cd"}, // case-insensitive
		{"abc", "ab/c0"},      // short names padded
		{"ab", "ab/00"},
		{"a", "a0/00"},
		{"", "00/00"},
	}
	for _, c := range cases {
		if got := FanOut(c.filename); got != c.want {
			t.Errorf("FanOut(%q) = %q, want %q", c.filename, got, c.want)
		}
	}
}

func TestFanOutStable(t *testing.T) {
	if FanOut("deadbeef.mp4") != FanOut("deadbeef.mp4") {
		t.Error("fan-out must be deterministic")
	}
}

func TestRelativePath(t *testing.T) {
	got := RelativePath("user42", KindThumbnail, "abcd.jpg")
	want := "thumbnails/user42/ab/cd/abcd.jpg"
	if got != want {
		t.Errorf("RelativePath = %q, want %q", got, want)
	}
}

func TestRelativePathKinds(t *testing.T) {
	cases := map[FileKind]string{
		KindOriginal:  "originals",
		KindThumbnail: "thumbnails",
		KindPreview:   "previews",
		KindVideo:     "videos",
		KindSidecar:   "sidecar",
	}
	for kind, dir := range cases {
		got := RelativePath("o", kind, "ffff")
		want := dir + "/o/ff/ff/ffff"
		if got != want {
			t.Errorf("RelativePath(%s) = %q, want %q", kind, got, want)
		}
	}
}

func TestFullPathLocal(t *testing.T) {
	got := FullPath("/media", "u", KindOriginal, "abcd.jpg")
	if got != "/media/originals/u/ab/cd/abcd.jpg" {
		t.Errorf("FullPath = %q", got)
	}
}

func TestFullPathRemote(t *testing.T) {
	got := FullPath("s3.eu-west-1.amazonaws.com/photos", "u", KindVideo, "abcd.mp4")
	if got != "s3.eu-west-1.amazonaws.com/photos/videos/u/ab/cd/abcd.mp4" {
		t.Errorf("FullPath = %q", got)
	}
}

func TestNeedsMkdir(t *testing.T) {
	if !NeedsMkdir("/media/library") {
		t.Error("local root needs mkdir")
	}
	if NeedsMkdir("s3.eu-west-1.amazonaws.com/photos/lib") {
		t.Error("remote root must not need mkdir")
	}
}

func TestFileKindValid(t *testing.T) {
	if !KindPreview.Valid() {
		t.Error("preview should be valid")
	}
	if FileKind("banana").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
