package templates

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeTemplate создаёт пустой файл шаблона.
func writeTemplate(t *testing.T, dir, name string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755); err != nil {
		t.Fatalf("os.MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
}

func TestFinder_FindCustomPath(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, MessageBox+".png")

	f := NewFinder(dir)

	found, err := f.Find()
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	abs, _ := filepath.Abs(dir)
	if found.Path != abs {
		t.Errorf("Path = %q, want %q", found.Path, abs)
	}
}

func TestFinder_FindEnvVar(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, MessageBox+".png")

	t.Setenv("WALLGEN_TEMPLATES", dir)

	f := NewFinder("")

	found, err := f.Find()
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	abs, _ := filepath.Abs(dir)
	if found.Path != abs {
		t.Errorf("Path = %q, want %q", found.Path, abs)
	}
}

func TestFinder_RequiresMessageBox(t *testing.T) {
	dir := t.TempDir()
	// Директория есть, но обязательного шаблона нет
	writeTemplate(t, dir, UpscaleButton+".png")

	f := NewFinder(dir)
	f.EnvVar = "WALLGEN_TEMPLATES_UNSET"

	if _, err := f.Find(); err == nil {
		t.Error("Find() without message_box template should fail")
	}
}

func TestDir_Resolve(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, MessageBox+".png")

	d := &Dir{Path: dir}

	want := filepath.Join(dir, MessageBox+".png")
	if got := d.Resolve(MessageBox); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestDir_ResolvePlatformOverride(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, MessageBox+".png")
	writeTemplate(t, dir, filepath.Join(runtime.GOOS, MessageBox+".png"))

	d := &Dir{Path: dir}

	want := filepath.Join(dir, runtime.GOOS, MessageBox+".png")
	if got := d.Resolve(MessageBox); got != want {
		t.Errorf("Resolve() = %q, want platform variant %q", got, want)
	}
}
