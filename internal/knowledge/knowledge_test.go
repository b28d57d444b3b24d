package knowledge_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pokequest/internal/knowledge"
	"pokequest/internal/model"
)

func TestBaseQuestionsAreAnswerable(t *testing.T) {
	for _, q := range knowledge.BaseQuestions {
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectOption {
				found = true
			}
		}
		if !found {
			t.Fatalf("question %q has no matching option for %q", q.QuestionText, q.CorrectOption)
		}
	}
}

func TestBaseCatalogCoversEveryTier(t *testing.T) {
	counts := make(map[model.RarityTier]int)
	for _, item := range knowledge.BaseCatalog {
		counts[item.RarityTier]++
	}
	for _, tier := range model.RarityTiers {
		if counts[tier] == 0 {
			t.Fatalf("tier %s has no catalog entries", tier)
		}
	}
}

func TestLoadQuestionsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `questions:
  - question: "Which fruit is highest in vitamin C?"
    options: ["Banana", "Kiwi", "Apple"]
    correct_answer: "Kiwi"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	questions, err := knowledge.LoadQuestions(path)
	if err != nil {
		t.Fatalf("LoadQuestions() error = %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectOption != "Kiwi" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
}

func TestLoadQuestionsRejectsUnanswerable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `questions:
  - question: "Pick one"
    options: ["a", "b"]
    correct_answer: "c"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := knowledge.LoadQuestions(path)
	if err == nil || !strings.Contains(err.Error(), "not among the options") {
		t.Fatalf("expected unanswerable error, got %v", err)
	}
}

func TestLoadCatalogDefaultsAndValidation(t *testing.T) {
	items, err := knowledge.LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog(\"\") error = %v", err)
	}
	if len(items) != len(knowledge.BaseCatalog) {
		t.Fatalf("expected base catalog, got %d items", len(items))
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `items:
  - id: 1
    name: Bulbasaur
    rarity_tier: mythic
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := knowledge.LoadCatalog(path); err == nil {
		t.Fatalf("expected invalid rarity error")
	}
}
