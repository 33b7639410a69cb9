package domain

type Archiver interface {
	Archive(sourceDir, destPath string) error
	Extract(sourcePath, destDir string) error
}
