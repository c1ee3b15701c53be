// Package openai adapts the OpenAI chat completion and image APIs to the
// generation provider ports. It is selected with llm.provider=openai.
package openai
