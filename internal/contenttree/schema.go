package contenttree

import "github.com/abhisek/mcqforge/internal/llm"

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func arr(items map[string]any, desc string) map[string]any {
	return map[string]any{"type": "array", "items": items, "description": desc}
}

func obj(props map[string]any, required ...string) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             req,
		"additionalProperties": false,
	}
}

var (
	subdetailDef = obj(map[string]any{
		"subdetail":   str("Label of the subdetail"),
		"particulars": arr(str("A single examinable fact"), "Leaf facts under this subdetail"),
	}, "subdetail", "particulars")

	detailDef = obj(map[string]any{
		"detail":     str("Label of the detail"),
		"subdetails": arr(subdetailDef, "Subdetails under this detail"),
	}, "detail", "subdetails")

	subtopicDef = obj(map[string]any{
		"subtopic": str("Label of the subtopic"),
		"details":  arr(detailDef, "Details under this subtopic"),
	}, "subtopic", "details")

	topicDef = obj(map[string]any{
		"topic":     str("Label of the topic"),
		"subtopics": arr(subtopicDef, "Subtopics under this topic"),
	}, "topic", "subtopics")
)

// OutlineSchema is the response shape for a full chapter outline.
var OutlineSchema = &llm.Schema{
	Name:        "chapter-outline",
	Description: "Hierarchical outline of a chapter: topics, subtopics, details, subdetails and particulars",
	Definition: obj(map[string]any{
		"topics": arr(topicDef, "Top-level topics of the chapter in reading order"),
	}, "topics"),
}

func withParent(def map[string]any, parentDesc string) map[string]any {
	props := map[string]any{"parentPath": str(parentDesc)}
	for k, v := range def["properties"].(map[string]any) {
		props[k] = v
	}
	req := append([]any{"parentPath"}, def["required"].([]any)...)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             req,
		"additionalProperties": false,
	}
}

// ExpansionSchema is the response shape for new entries addressed by
// parent paths.
var ExpansionSchema = &llm.Schema{
	Name:        "outline-expansion",
	Description: "New outline entries, each attached to an existing parent by path",
	Definition: obj(map[string]any{
		"topics":     arr(topicDef, "New top-level topics"),
		"subtopics":  arr(withParent(subtopicDef, "Path of the parent topic, e.g. root.topics[0]"), "New subtopics"),
		"details":    arr(withParent(detailDef, "Path of the parent subtopic, e.g. root.topics[0].subtopics[1]"), "New details"),
		"subdetails": arr(withParent(subdetailDef, "Path of the parent detail"), "New subdetails"),
		"particulars": arr(obj(map[string]any{
			"parentPath": str("Path of the parent subdetail"),
			"particular": str("A single examinable fact"),
		}, "parentPath", "particular"), "New particulars"),
	}, "topics", "subtopics", "details", "subdetails", "particulars"),
}
