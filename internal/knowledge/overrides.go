package knowledge

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pokequest/internal/model"
)

type questionFile struct {
	Questions []model.QuizQuestion `yaml:"questions"`
}

type catalogFile struct {
	Items []model.CollectibleItem `yaml:"items"`
}

// LoadQuestions returns the question pool from path, or BaseQuestions when
// path is empty.
func LoadQuestions(path string) ([]model.QuizQuestion, error) {
	if strings.TrimSpace(path) == "" {
		return BaseQuestions, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var file questionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, errors.New("question file has no questions")
	}
	for i, q := range file.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return file.Questions, nil
}

// LoadCatalog returns the reward catalog from path, or BaseCatalog when path
// is empty.
func LoadCatalog(path string) ([]model.CollectibleItem, error) {
	if strings.TrimSpace(path) == "" {
		return BaseCatalog, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	seen := make(map[int]struct{}, len(file.Items))
	for _, item := range file.Items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("catalog item %q has no id", item.Name)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("catalog item id %d is duplicated", item.ID)
		}
		seen[item.ID] = struct{}{}
		if !item.RarityTier.Valid() {
			return nil, fmt.Errorf("catalog item %d has invalid rarity %q", item.ID, item.RarityTier)
		}
	}
	return file.Items, nil
}

func validateQuestion(q model.QuizQuestion) error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return errors.New("empty question text")
	}
	if len(q.Options) < 2 {
		return errors.New("needs at least two options")
	}
	for _, opt := range q.Options {
		if opt == q.CorrectOption {
			return nil
		}
	}
	return fmt.Errorf("correct answer %q is not among the options", q.CorrectOption)
}
