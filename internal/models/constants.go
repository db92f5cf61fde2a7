package models

const (
	// Placeholders recognized inside prompt templates.
	PlaceholderChunks   = "{retrieved_chunks}"
	PlaceholderQuestion = "{question}"

	DefaultSystemPrompt = "You are my notes assistant. Answer the question using the provided notes. Be friendly, concise and give concrete suggestions."

	DefaultPromptTemplate = `Based on the following notes:
{retrieved_chunks}

Answer the user's question: {question}

Answer from the notes; if they are not sufficient, say so.`

	// SentinelAnswer is returned when every generation backend fails.
	// It goes into the chat as a normal assistant turn, never as an error.
	SentinelAnswer = "I was unable to produce a response. Check the generation backend configuration and try again."
)
