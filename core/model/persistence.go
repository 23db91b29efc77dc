package model

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
)

// Entry はアーカイブ内の1つのJSON文書
type Entry struct {
	Name  string
	Value interface{}
}

// SaveArchive はエントリをzipアーカイブとしてファイルに保存する
//
// 書き込みは同じディレクトリの一時ファイルに対して行い、成功した場合のみ
// filename へリネームする。失敗時は一時ファイルを削除するため、
// 中途半端なファイルが残ることはない。
//
// 使用例:
//
//	err := model.SaveArchive("Data/Model.zip",
//	    model.Entry{Name: "meta.json", Value: meta},
//	    model.Entry{Name: "trees.json", Value: ensemble},
//	)
func SaveArchive(filename string, entries ...Entry) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteArchive(tmp, entries...); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "failed to flush file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "failed to set file mode")
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrap(err, "failed to move file into place")
	}
	return nil
}

// WriteArchive はエントリをzip形式でio.Writerに書き込む
func WriteArchive(w io.Writer, entries ...Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		f, err := zw.Create(entry.Name)
		if err != nil {
			return errors.Wrapf(err, "failed to create entry %s", entry.Name)
		}
		if err := json.NewEncoder(f).Encode(entry.Value); err != nil {
			return errors.Wrapf(err, "failed to encode entry %s", entry.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "failed to finish archive")
	}
	return nil
}

// LoadArchive はzipアーカイブから指定されたエントリを読み込む
//
// targets のキーはエントリ名、値はデコード先のポインタ。
// 存在しないエントリはエラーとなる。
func LoadArchive(filename string, targets map[string]interface{}) error {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileNotFoundError(filename)
		}
		return errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat file")
	}
	return ReadArchive(f, info.Size(), targets)
}

// ReadArchive はio.ReaderAtからzipアーカイブを読み込む
func ReadArchive(r io.ReaderAt, size int64, targets map[string]interface{}) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	for name, target := range targets {
		f, ok := files[name]
		if !ok {
			return errors.Newf("archive entry %s not found", name)
		}
		if err := decodeEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func decodeEntry(f *zip.File, target interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to open entry %s", f.Name)
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(target); err != nil {
		return errors.Wrapf(err, "failed to decode entry %s", f.Name)
	}
	return nil
}
