// Package openai implements the provider interface on top of the OpenAI chat
// completions API, in both streaming and single-shot modes. Model values are
// cached per name so agents sharing a model share a client.
package openai
