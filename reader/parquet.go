package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// parquetSource reads the rows of a flat Parquet file as strings.
//
// It keeps both the OS file handle and the parquet file handle so Close can
// release them, and recreates the row reader on Rewind.
type parquetSource struct {
	file    *os.File
	pqFile  *parquet.File
	reader  *parquet.Reader
	columns []string
	header  []string
}

// OpenParquet opens a Parquet file as a Source. The header is the list of
// top-level leaf columns; supplied Options.Names replace it and must have
// the same length. Null values read as empty strings.
func OpenParquet(path string, opts Options) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	columns, err := flatColumns(pqFile.Schema())
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	header := columns
	if len(opts.Names) > 0 {
		if len(opts.Names) != len(columns) {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %d names for %d columns", ErrNamesMismatch, len(opts.Names), len(columns))
		}
		header = append([]string(nil), opts.Names...)
	}

	return &parquetSource{
		file:    file,
		pqFile:  pqFile,
		reader:  parquet.NewReader(pqFile),
		columns: columns,
		header:  header,
	}, nil
}

func (s *parquetSource) Header() []string {
	return s.header
}

func (s *parquetSource) Next() ([]string, error) {
	row := make(map[string]interface{}, len(s.columns))
	if err := s.reader.Read(&row); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	record := make([]string, len(s.columns))
	for i, col := range s.columns {
		record[i] = formatCell(row[col])
	}
	return record, nil
}

func (s *parquetSource) Rewind() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("failed to close row reader: %w", err)
	}
	s.reader = parquet.NewReader(s.pqFile)
	return nil
}

// Close closes the parquet reader and releases the file handle. It is safe
// to call Close multiple times.
func (s *parquetSource) Close() error {
	if s.file == nil {
		return nil
	}
	_ = s.reader.Close()
	err := s.file.Close()
	s.file = nil
	return err
}

// formatCell renders a parquet value the way it would appear in a text file
func formatCell(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}
