// Package extract pulls named entities out of free text through an
// external NLP capability and folds them into the graph vocabulary.
//
// The capability is pluggable (see NLP and Summarizer); internal/llm
// provides a language-model backed implementation. Without one, calls
// return a not-configured status instead of failing.
package extract
