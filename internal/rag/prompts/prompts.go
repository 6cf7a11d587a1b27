// Package prompts holds every prompt the pipeline sends to a language model.
// Each tool is a pure function of (topic, level, notes).
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/akolanti/StudyRAG/internal/domain/ragErrors"
)

type ToolID string

const (
	AskQuestion       ToolID = "ask-question"
	ExamQuestions     ToolID = "exam-questions"
	Flashcards        ToolID = "flashcards"
	RevisionQuestions ToolID = "revision-questions"
	CaseStudy         ToolID = "case-study"
	TopicSummary      ToolID = "topic-summary"
)

type Level string

const (
	LevelAS Level = "AS Level"
	LevelA2 Level = "A2 Level"
)

const DefaultLevel = LevelAS

// NoContextMarker replaces the context section when retrieval finds nothing.
const NoContextMarker = "No relevant notes found."

type Template func(topic string, level Level, notes string) string

type Tool struct {
	ID          ToolID `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	template    Template
}

var tools = map[ToolID]Tool{
	AskQuestion: {
		ID:          AskQuestion,
		Title:       "Ask a Question",
		Description: "Get detailed answers to your ICT questions",
		template: func(topic string, level Level, notes string) string {
			return fmt.Sprintf(`You are an expert A-Level ICT tutor. Answer the following question clearly and comprehensively.

Question: %s
Level: %s%s

Provide a clear, structured answer with examples where appropriate.`, topic, level, notesSection(notes))
		},
	},
	ExamQuestions: {
		ID:          ExamQuestions,
		Title:       "Exam-Style Questions",
		Description: "Generate practice exam questions with mark schemes",
		template: func(topic string, level Level, notes string) string {
			return fmt.Sprintf(`You are an expert A-Level ICT exam question writer.
Generate 5-6 high-quality %s exam-style questions on: %s%s

For EACH question provide:
1. The question itself
2. Mark allocation (e.g., [4 marks])
3. A detailed mark scheme with key points

Format clearly with proper numbering and spacing.`, level, topic, notesSection(notes))
		},
	},
	Flashcards: {
		ID:          Flashcards,
		Title:       "Flashcards",
		Description: "Create flashcards for quick revision",
		template: func(topic string, level Level, notes string) string {
			return fmt.Sprintf(`You are an expert A-Level ICT tutor creating flashcards.
Create 10-12 %s flashcards on: %s%s

For EACH flashcard provide:
- Question/Term (front)
- Answer/Definition (back)

Format as numbered cards with clear Q&A structure.
Make them concise but comprehensive for revision.`, level, topic, notesSection(notes))
		},
	},
	RevisionQuestions: {
		ID:          RevisionQuestions,
		Title:       "Quick Revision Questions",
		Description: "Fast recall questions for active revision",
		template: func(topic string, level Level, notes string) string {
			return fmt.Sprintf(`You are an expert A-Level ICT tutor creating quick revision questions.
Generate 15-20 quick recall %s questions on: %s%s

Format as a numbered list with short, sharp questions perfect for quick testing.
Cover key concepts, definitions, and important facts.`, level, topic, notesSection(notes))
		},
	},
	CaseStudy: {
		ID:          CaseStudy,
		Title:       "Case Study Answers",
		Description: "Structured answers for case study scenarios",
		template: func(topic string, level Level, notes string) string {
			return fmt.Sprintf(`You are an expert A-Level ICT tutor helping with case study analysis.
Provide a structured %s case study answer for: %s%s

Structure the answer with:
- Introduction
- Key points with clear subheadings
- Analysis and evaluation
- Conclusion

Make it suitable for A-Level ICT case study questions.`, level, topic, notesSection(notes))
		},
	},
	TopicSummary: {
		ID:          TopicSummary,
		Title:       "Topic Summary",
		Description: "Condensed revision summary of a topic",
		template: func(topic string, level Level, notes string) string {
			return fmt.Sprintf(`You are an expert A-Level ICT tutor writing revision summaries.
Summarise the %s topic: %s%s

Include:
- Key definitions
- The main concepts as short bullet points
- Common exam pitfalls

Keep it to a single page of revision notes.`, level, topic, notesSection(notes))
		},
	},
}

// Tools returns the catalogue sorted by id.
func Tools() []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func Lookup(id ToolID) (Tool, error) {
	t, ok := tools[id]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", ragErrors.ErrUnknownTool, id)
	}
	return t, nil
}

// ParseLevel maps an empty label to the default level. Unrecognised labels
// are kept as given.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLevel
	}
	switch strings.ToUpper(strings.ReplaceAll(s, " ", "")) {
	case "AS", "ASLEVEL":
		return LevelAS
	case "A2", "A2LEVEL":
		return LevelA2
	}
	return Level(s)
}

// Build renders the tool's template. An empty tool id means ask-question.
func Build(tool ToolID, topic string, level Level, notes string) (string, error) {
	if tool == "" {
		tool = AskQuestion
	}
	t, err := Lookup(tool)
	if err != nil {
		return "", err
	}
	if level == "" {
		level = DefaultLevel
	}
	return t.template(topic, level, notes), nil
}

// Grounding asks for an answer restricted to the retrieved context.
func Grounding(question string, level Level, notes string, context string) string {
	if level == "" {
		level = DefaultLevel
	}
	return fmt.Sprintf(`You are an expert A-Level ICT tutor. Answer the following question based ONLY on the provided context.

Context:
%s

Question: "%s"
Level: %s%s

If the answer is not in the context, state "Not found in the provided notes" but try to be helpful if possible while clarifying the source.`,
		contextOrMarker(context), question, level, notesSection(notes))
}

// WithContext appends the retrieved notes to a tool prompt.
func WithContext(prompt string, context string) string {
	return prompt + "\n\nBase your response on these notes where relevant:\n" + contextOrMarker(context)
}

const RefinementSystem = "You are a helpful expert tutor for A-Level ICT."

func Refinement(baseAnswer string, context string) string {
	return fmt.Sprintf(`You are an expert A-Level ICT tutor.
Refine, clarify, and expand the AI-generated answer below.
You MUST stay accurate to the provided context from ICT notes.
If information is not in the context, avoid inventing facts.

Context:
%s

Base Answer:
%s

Your task:
- improve structure
- make the explanation clearer
- add examples if appropriate
- improve formatting
- ensure it matches A-Level ICT exam style`, context, baseAnswer)
}

func contextOrMarker(context string) string {
	if strings.TrimSpace(context) == "" {
		return NoContextMarker
	}
	return context
}

func notesSection(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return ""
	}
	return "\n\nAdditional Context: " + notes
}
