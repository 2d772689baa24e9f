package main

// defaultSystemPrompt is sent as the system turn of every request unless
// --sys or llm.system_prompt replaces it.
const defaultSystemPrompt = "You rewrite text as if it was written by a pirate. Arr, matey! Each response is the text, but piratey."
