package models

const (
	CollectionCases = "bd_legal_cases"
	CollectionLaws  = "bd_law_reference"
)

const (
	SystemPrompt = `You are a legal research assistant. Use the provided context of case law and statute excerpts to answer the question. Cite the cases and sections you rely on. If the context does not cover the question, say so instead of guessing.`

	ChatPromptTemplate = `Relevant Context:
%s

Question: %s`
)
