package mcpserver

// LayoutContract describes how groups, notebooks and artifacts are addressed
// so that LLM consumers can reason about paths returned by the tools.
const LayoutContract = `# studyvault Layout

Content is organised as a tree of **groups** (folders) holding **notebooks**.
Each notebook keeps up to four study artifacts.

## Paths

- The root group is ` + "`/root/`" + `. Group paths start and end with ` + "`/`" + `.
- A child group of ` + "`P`" + ` named ` + "`N`" + ` lives at ` + "`P + N + \"/\"`" + `, e.g. ` + "`/root/Math/`" + `.
- A notebook named ` + "`N`" + ` under group ` + "`P`" + ` lives at ` + "`P + \"_notebooks/\" + N`" + `,
  e.g. ` + "`/root/Math/_notebooks/Calc1`" + `. Notebooks have no children.
- Names are trimmed, must not be empty and must not be ` + "`_notebooks`" + `.
- Two groups (or two notebooks) in the same group cannot share a name.
  Names are case-sensitive.

## Artifacts

| Field | Value |
|---|---|
| ` + "`transcript`" + ` | captured text of the lecture or page |
| ` + "`summary_title`" + ` | short summary |
| ` + "`flashcards`" + ` | JSON list of ` + "`{\"question\", \"answer\"}`" + ` |
| ` + "`yt_suggest`" + ` | JSON list of ` + "`{\"search_query\", \"reason\", \"videoId\"?, \"snippet\"?}`" + ` |

Only ` + "`transcript`" + ` and ` + "`summary_title`" + ` are searchable.
When writing ` + "`flashcards`" + ` or ` + "`yt_suggest`" + ` straight from model output,
set ` + "`from_model`" + ` so surrounding code fences are removed.

## Review

` + "`start_review`" + ` opens a flashcard session for a notebook. ` + "`review_card`" + `
flips, moves and rates cards. Cards rated ` + "`easy`" + ` leave the rotation and the
session ends once every card is easy.
`
