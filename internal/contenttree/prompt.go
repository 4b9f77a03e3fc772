package contenttree

import (
	"fmt"
	"strings"
)

const outlineSystemPrompt = `You are a subject expert preparing study material for the UPSC Civil Services examination.

Rules:
- Produce a hierarchical outline of the chapter: topics, subtopics, details, subdetails and particulars.
- Particulars are single, specific, examinable facts (dates, articles, bodies, numbers, names).
- Follow the order in which the chapter presents its material.
- Labels are short noun phrases. Do not number them.
- Do not invent material that is not part of the chapter.`

const expandSystemPrompt = `You are a subject expert extending a UPSC study outline.

Rules:
- You are given the current outline with the path of every node.
- Propose only material that is NOT already present. Do not repeat or rephrase existing nodes.
- Attach every new entry to an existing parent using its exact path, e.g. root.topics[0].subtopics[1].
- Subtopics attach to topics, details to subtopics, subdetails to details, particulars to subdetails.
- New top-level topics go in "topics" and need no path.
- Leave a list empty when you have nothing to add at that level.`

// ChapterInput identifies the chapter an outline is built for.
type ChapterInput struct {
	Category string
	Chapter  string
	// Notes is optional source material (table of contents, excerpt).
	Notes string
}

func buildOutlineMessage(in ChapterInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", in.Category)
	fmt.Fprintf(&b, "Chapter: %s\n", in.Chapter)
	if in.Notes != "" {
		b.WriteString("\nSource notes:\n")
		b.WriteString(in.Notes)
		b.WriteString("\n")
	}
	return b.String()
}

func buildExpandMessage(in ChapterInput, tree *Tree, maxEntries int) string {
	var b strings.Builder
	b.WriteString(buildOutlineMessage(in))
	b.WriteString("\nCurrent outline:\n")
	b.WriteString(IndexedOutline(tree))
	if maxEntries > 0 {
		fmt.Fprintf(&b, "\nAdd at most %d new entries in total.\n", maxEntries)
	}
	return b.String()
}

// IndexedOutline renders the tree one node per line, each prefixed with its
// path, indented by depth.
func IndexedOutline(t *Tree) string {
	if t.IsEmpty() {
		return "(empty)\n"
	}
	var b strings.Builder
	line := func(depth int, p Path, label string) {
		fmt.Fprintf(&b, "%s%s  %s\n", strings.Repeat("  ", depth), p, label)
	}
	for i, tp := range t.Topics {
		tpPath := Path{}.Child(LevelTopics, i)
		line(0, tpPath, tp.Topic)
		for j, st := range tp.Subtopics {
			stPath := tpPath.Child(LevelSubtopics, j)
			line(1, stPath, st.Subtopic)
			for k, d := range st.Details {
				dPath := stPath.Child(LevelDetails, k)
				line(2, dPath, d.Detail)
				for l, sd := range d.Subdetails {
					sdPath := dPath.Child(LevelSubdetails, l)
					line(3, sdPath, sd.Subdetail)
					for _, p := range sd.Particulars {
						fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", 4), p)
					}
				}
			}
		}
	}
	return b.String()
}
