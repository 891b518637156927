package analysis

// DefaultPrompt is the instruction used when the settings store has no
// custom analysis prompt. Models occasionally ignore the "only JSON"
// instruction and fence the reply anyway; the client strips that before
// parsing.
const DefaultPrompt = `Analyze this screenshot and return a JSON object with:
- current_focus: What is the user currently working on? (1-2 sentences)
- active_software: What software is being used?
- context_keywords: What are the key topics/technologies? (array of strings)

Return ONLY valid JSON, no other text. Example format:
{"current_focus": "Writing a storage layer in Go", "active_software": "VS Code", "context_keywords": ["Go", "SQLite", "testing"]}`
