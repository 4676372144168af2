package server

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"

	"sharex-server/internal/storage"
)

var idAlphabet = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// existsStore answers Exists from a script and records every name asked.
type existsStore struct {
	storage.Storage
	takenFirst bool
	err        error
	asked      []string
}

func (s *existsStore) Exists(_ context.Context, name string) (bool, error) {
	s.asked = append(s.asked, name)
	if s.err != nil {
		return false, s.err
	}
	return s.takenFirst && len(s.asked) == 1, nil
}

func TestGenerateID(t *testing.T) {
	Convey("generateID", t, func() {
		Convey("returns exactly the requested number of characters", func() {
			for _, length := range []int{1, 10, 21, 64, maxFilenameLength} {
				id, err := generateID(length)
				So(err, ShouldBeNil)
				So(utf8.RuneCountInString(id), ShouldEqual, length)
				So(len(id), ShouldEqual, length)
			}
		})

		Convey("uses the URL-safe alphabet only", func() {
			for i := 0; i < 50; i++ {
				id, err := generateID(32)
				So(err, ShouldBeNil)
				So(idAlphabet.MatchString(id), ShouldBeTrue)
			}
		})

		Convey("does not repeat itself", func() {
			seen := make(map[string]bool)
			for i := 0; i < 1000; i++ {
				id, err := generateID(10)
				So(err, ShouldBeNil)
				So(seen[id], ShouldBeFalse)
				seen[id] = true
			}
		})
	})
}

func TestExtensionOf(t *testing.T) {
	Convey("extensionOf", t, FailureContinues, func() {
		Convey("keeps what follows the last dot", FailureContinues, func() {
			samples := []struct {
				input string
				ext   string
			}{
				{"screenshot.png", ".png"},
				{"archive.tar.gz", ".gz"},
				{".bashrc", ".bashrc"},
				{"Döner.jpeg", ".jpeg"},
				{"clip.MP4", ".MP4"},
			}

			for i, tuple := range samples {
				tuple.ext = extensionOf(samples[i].input)
				So(tuple, ShouldResemble, samples[i])
			}
		})

		Convey("returns nothing without an extension", FailureContinues, func() {
			samples := []struct {
				input string
				ext   string
			}{
				{"README", ""},
				{"", ""},
				{"trailing.", ""},
				{"..", ""},
			}

			for i, tuple := range samples {
				tuple.ext = extensionOf(samples[i].input)
				So(tuple, ShouldResemble, samples[i])
			}
		})

		Convey("drops extensions that are unsafe in a filename or URL", FailureContinues, func() {
			samples := []struct {
				input string
				ext   string
			}{
				{"evil.a/../../b", ""},
				{`evil.a\b`, ""},
				{"nul.p\x00ng", ""},
				{"tab.p\tng", ""},
				{"space.p ng", ""},
				{"query.png?x=1", ""},
				{"frag.png#top", ""},
				{"pct.p%2Fng", ""},
				{"win.ext:stream", ""},
				{"latin1.\xff", ""},
				{"nel.png\u0085", ""},
			}

			for i, tuple := range samples {
				tuple.ext = extensionOf(samples[i].input)
				So(tuple, ShouldResemble, samples[i])
			}
		})

		Convey("normalises to NFC", func() {
			So(extensionOf("photo.e\u0301"), ShouldEqual, ".\u00e9")
		})
	})
}

func TestAllocateName(t *testing.T) {
	ctx := context.Background()

	Convey("allocateName", t, func() {
		Convey("uses the first candidate when it is free", func() {
			store := &existsStore{}
			name, err := allocateName(ctx, store, "shot.png", 10)
			So(err, ShouldBeNil)
			So(name, ShouldEndWith, ".png")
			So(len(name), ShouldEqual, 10+len(".png"))
			So(store.asked, ShouldResemble, []string{name})
		})

		Convey("draws once more on a collision without checking again", func() {
			store := &existsStore{takenFirst: true}
			name, err := allocateName(ctx, store, "shot.png", 10)
			So(err, ShouldBeNil)
			So(store.asked, ShouldHaveLength, 1)
			So(name, ShouldNotEqual, store.asked[0])
			So(name, ShouldEndWith, ".png")
			So(idAlphabet.MatchString(strings.TrimSuffix(name, ".png")), ShouldBeTrue)
		})

		Convey("omits the extension when the original has none", func() {
			name, err := allocateName(ctx, &existsStore{}, "README", 12)
			So(err, ShouldBeNil)
			So(len(name), ShouldEqual, 12)
			So(strings.Contains(name, "."), ShouldBeFalse)
		})

		Convey("reports storage errors", func() {
			boom := errors.New("boom")
			_, err := allocateName(ctx, &existsStore{err: boom}, "a.txt", 10)
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
