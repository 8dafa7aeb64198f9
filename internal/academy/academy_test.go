package academy

import (
	"errors"
	"strings"
	"testing"
)

func TestListOrderAndSummaries(t *testing.T) {
	topics := List()
	want := []string{"keplers-laws", "rocket-equation", "lagrange-points", "n-body"}
	if len(topics) != len(want) {
		t.Fatalf("got %d topics, want %d", len(topics), len(want))
	}
	for i, id := range want {
		if topics[i].ID != id {
			t.Errorf("topic %d = %q, want %q", i, topics[i].ID, id)
		}
		if topics[i].Content != "" {
			t.Errorf("topic %q summary carries content", id)
		}
	}

	// Mutating the returned slice must not affect the catalogue.
	topics[0].Title = "changed"
	if List()[0].Title == "changed" {
		t.Error("List returned the shared catalogue slice")
	}
}

func TestGetEveryTopic(t *testing.T) {
	for _, s := range List() {
		topic, err := Get(s.ID)
		if err != nil {
			t.Fatalf("Get(%q): %v", s.ID, err)
		}
		if !strings.HasPrefix(topic.Content, "## ") {
			t.Errorf("Get(%q) content does not start with a heading: %.40q", s.ID, topic.Content)
		}
		if topic.Title != s.Title {
			t.Errorf("Get(%q) title = %q, want %q", s.ID, topic.Title, s.Title)
		}
	}
}

func TestGetRocketEquationMentionsFormula(t *testing.T) {
	topic, err := Get("rocket-equation")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(topic.Content, "ln(m₀/mf)") {
		t.Error("rocket equation article is missing the formula")
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("warp-drive")
	if !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("error = %v, want ErrTopicNotFound", err)
	}
}
