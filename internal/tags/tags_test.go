package tags

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// createTestMP3 creates a minimal MP3 file with optional tags.
func createTestMP3(t *testing.T, dir string, tags *Tag) string {
	t.Helper()
	path := filepath.Join(dir, "test.mp3")

	// Minimal MP3 frame (MPEG1 Layer3, 128kbps, 44100Hz, stereo)
	mp3Frame := make([]byte, 417)
	mp3Frame[0] = 0xff
	mp3Frame[1] = 0xfb
	mp3Frame[2] = 0x90
	mp3Frame[3] = 0x00

	if err := os.WriteFile(path, mp3Frame, 0o600); err != nil {
		t.Fatalf("failed to create test MP3: %v", err)
	}

	if tags != nil {
		writeTestID3(t, path, tags)
	}

	return path
}

func writeTestID3(t *testing.T, path string, tags *Tag) {
	t.Helper()
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer id3tag.Close()

	id3tag.SetVersion(4)
	id3tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	id3tag.SetTitle(tags.Title)
	id3tag.SetArtist(tags.Artist)
	id3tag.SetAlbum(tags.Album)
	id3tag.SetGenre(tags.Genre)
	if tags.AlbumArtist != "" {
		id3tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, tags.AlbumArtist)
	}
	if tags.Date != "" {
		id3tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, tags.Date)
	}
	if err := id3tag.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
}

// createTestWAV writes one second of 16-bit mono silence at 8kHz.
func createTestWAV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	const sampleRate = 8000
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, sampleRate),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

func assertEqual[T comparable](t *testing.T, field string, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func TestRead_MP3(t *testing.T) {
	dir := t.TempDir()
	tags := &Tag{
		Title:       "Test Title",
		Artist:      "Test Artist",
		AlbumArtist: "Test Album Artist",
		Album:       "Test Album",
		Genre:       "Rock",
	}
	path := createTestMP3(t, dir, tags)

	result, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	assertEqual(t, "Title", result.Title, tags.Title)
	assertEqual(t, "Artist", result.Artist, tags.Artist)
	assertEqual(t, "Album", result.Album, tags.Album)
	assertEqual(t, "AlbumArtist", result.AlbumArtist, tags.AlbumArtist)
	assertEqual(t, "Genre", result.Genre, tags.Genre)
	assertEqual(t, "Path", result.Path, path)
}

func TestRead_NonexistentFile(t *testing.T) {
	_, err := Read("/nonexistent/path/file.mp3")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestRead_TitleFallbackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, &Tag{Artist: "Test Artist", Album: "Test Album"})

	newPath := filepath.Join(dir, "My Song.mp3")
	if err := os.Rename(path, newPath); err != nil {
		t.Fatalf("rename: %v", err)
	}

	result, err := Read(newPath)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if result.Title != "My Song.mp3" {
		t.Errorf("Title = %q, want %q", result.Title, "My Song.mp3")
	}
}

func TestRead_AlbumArtistFallbackToArtist(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, &Tag{Title: "Test", Artist: "Solo Artist", Album: "Test Album"})

	result, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if result.AlbumArtist != "Solo Artist" {
		t.Errorf("AlbumArtist = %q, want %q", result.AlbumArtist, "Solo Artist")
	}
}

func TestRead_Unicode(t *testing.T) {
	dir := t.TempDir()
	tags := &Tag{Title: "Café del Mar", Artist: "Björk", Album: "日本語"}
	path := createTestMP3(t, dir, tags)

	result, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	assertEqual(t, "Title", result.Title, tags.Title)
	assertEqual(t, "Artist", result.Artist, tags.Artist)
	assertEqual(t, "Album", result.Album, tags.Album)
}

func TestReadMP3WithID3v2Fallback(t *testing.T) {
	dir := t.TempDir()
	tags := &Tag{Title: "Fallback", Artist: "Artist", Album: "Album", Date: "2021-05-04"}
	path := createTestMP3(t, dir, tags)

	result, err := readMP3WithID3v2Fallback(path)
	if err != nil {
		t.Fatalf("readMP3WithID3v2Fallback() error: %v", err)
	}

	assertEqual(t, "Title", result.Title, tags.Title)
	assertEqual(t, "Artist", result.Artist, tags.Artist)
	assertEqual(t, "AlbumArtist", result.AlbumArtist, tags.Artist)
	assertEqual(t, "Date", result.Date, tags.Date)
	assertEqual(t, "Year", result.Year(), 2021)
}

func TestReadAudioInfo_MP3(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, nil)

	info, err := ReadAudioInfo(path)
	if err != nil {
		t.Fatalf("ReadAudioInfo() error: %v", err)
	}

	assertEqual(t, "Format", info.Format, "MP3")
	assertEqual(t, "SampleRate", info.SampleRate, 44100)
	assertEqual(t, "BitDepth", info.BitDepth, 16)
}

func TestReadAudioInfo_WAV(t *testing.T) {
	dir := t.TempDir()
	path := createTestWAV(t, dir)

	info, err := ReadAudioInfo(path)
	if err != nil {
		t.Fatalf("ReadAudioInfo() error: %v", err)
	}

	assertEqual(t, "Format", info.Format, "WAV")
	assertEqual(t, "SampleRate", info.SampleRate, 8000)
	assertEqual(t, "BitDepth", info.BitDepth, 16)
	assertEqual(t, "Duration", info.Duration, time.Second)
}

func TestReadAudioInfo_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := ReadAudioInfo(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("ReadAudioInfo() error = %v, want unsupported format", err)
	}
}

func TestReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, &Tag{Title: "Song", Artist: "Artist", Album: "Album"})

	info, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	assertEqual(t, "Title", info.Title, "Song")
	assertEqual(t, "Artist", info.Artist, "Artist")
	assertEqual(t, "Album", info.Album, "Album")
}

func TestReader_Length(t *testing.T) {
	dir := t.TempDir()
	path := createTestWAV(t, dir)

	d, err := NewReader().Length(path)
	if err != nil {
		t.Fatalf("Length() error: %v", err)
	}
	assertEqual(t, "Length", d, time.Second)
}

func TestReader_Unavailable(t *testing.T) {
	r := NewReader()

	if _, err := r.Read("/nonexistent/song.mp3"); !errors.Is(err, ErrMetadataUnavailable) {
		t.Errorf("Read() error = %v, want ErrMetadataUnavailable", err)
	}
	if _, err := r.Length("/nonexistent/song.flac"); !errors.Is(err, ErrMetadataUnavailable) {
		t.Errorf("Length() error = %v, want ErrMetadataUnavailable", err)
	}
}

func TestIsMusicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"SONG.MP3", true},
		{"/music/a/b.flac", true},
		{"take.wav", true},
		{"track.ogg", true},
		{"track.oga", true},
		{"cover.jpg", false},
		{"noext", false},
		{"archive.mp3.zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assertEqual(t, "IsMusicFile", IsMusicFile(tt.path), tt.want)
		})
	}
}

func TestParseNumberPair(t *testing.T) {
	tests := []struct {
		in       string
		num, tot int
	}{
		{"", 0, 0},
		{"5", 5, 0},
		{"5/12", 5, 12},
		{" 3 / 9 ", 3, 9},
		{"x/y", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			num, tot := parseNumberPair(tt.in)
			assertEqual(t, "num", num, tt.num)
			assertEqual(t, "total", tot, tt.tot)
		})
	}
}

func TestYearToDate(t *testing.T) {
	assertEqual(t, "zero", yearToDate(0), "")
	assertEqual(t, "year", yearToDate(1999), "1999")
}

func TestSkipID3v2(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, &Tag{Title: "x"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := SkipID3v2(f); err != nil {
		t.Fatalf("SkipID3v2() error: %v", err)
	}

	sync := make([]byte, 2)
	if _, err := f.Read(sync); err != nil {
		t.Fatal(err)
	}
	if sync[0] != 0xff || sync[1] != 0xfb {
		t.Errorf("after skip got % x, want ff fb", sync)
	}
}
