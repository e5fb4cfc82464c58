package file

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"academy-quiz-service/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://question-bank.json"

//go:embed bank.schema.json
var bankSchemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// BankLoader reads question banks from JSON files in a directory. Each
// discipline names its file; unknown disciplines fall back to
// quiz_data_{id}.json.
type BankLoader struct {
	dir   string
	files map[string]string
}

func NewBankLoader(dir string, disciplines []domain.Discipline) *BankLoader {
	files := make(map[string]string, len(disciplines))
	for _, d := range disciplines {
		if d.DataFile != "" {
			files[d.ID] = d.DataFile
		}
	}
	return &BankLoader{dir: dir, files: files}
}

func (l *BankLoader) LoadBank(_ context.Context, disciplineID string) (domain.QuestionBank, error) {
	name, ok := l.files[disciplineID]
	if !ok {
		name = "quiz_data_" + disciplineID + ".json"
	}
	raw, err := os.ReadFile(filepath.Join(l.dir, filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.QuestionBank{}, fmt.Errorf("%w: %s", domain.ErrBankNotFound, disciplineID)
	}
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("read bank %s: %w", disciplineID, err)
	}
	bank, err := Decode(raw)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("bank %s: %w", disciplineID, err)
	}
	bank.DisciplineID = disciplineID
	return bank, nil
}

// Decode parses a bank document, checking it against the bank schema
// before the semantic checks of domain.QuestionBank.Validate.
func Decode(raw []byte) (domain.QuestionBank, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("%w: invalid JSON: %v", domain.ErrInvalidBank, err)
	}
	schema, err := bankSchema()
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("compile bank schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("%w: %v", domain.ErrInvalidBank, err)
	}

	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("%w: %v", domain.ErrInvalidBank, err)
	}
	if err := bank.Validate(); err != nil {
		return domain.QuestionBank{}, err
	}
	return bank, nil
}

func bankSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal(bankSchemaJSON, &doc); err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}
