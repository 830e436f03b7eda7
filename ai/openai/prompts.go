package openai

import "github.com/tmc/langchaingo/prompts"

const noSectionsPlaceholder = "(No timestamp data available, infer from transcript flow)"

const summaryPromptTemplate = `You are a highly capable AI assistant. Read the provided video transcript and generate a structured summary.

Video Title: {{.title}}

Transcript:
{{.transcript}}

Real Timestamp Sections (use these exact timestamps):
{{.timestamp_sections}}

Generate the response strictly in the following structure:
🎥 Title: {{.title}}

📌 Key Points:
- [Point 1]
- [Point 2]
- [Point 3]
- [Point 4]
- [Point 5]

⏱ Important Timestamps: (use the real timestamps provided above)
- [M:SS] [Section description]
- [M:SS] [Section description]
- [M:SS] [Section description]

🧠 Core Takeaway: [One sentence main takeaway]

✅ Actionable Insights:
- [Action 1]
- [Action 2]
`

func summaryPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(summaryPromptTemplate, []string{"title", "transcript", "timestamp_sections"})
}
