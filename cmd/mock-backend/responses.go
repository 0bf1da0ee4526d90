package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// family is one kind of instruction the mock can write verifiers for.
type family struct {
	keyword string
	body    string
	pass    func(i int) string
	fail    func(i int) string
}

var families = []family{
	{
		keyword: "lowercase",
		body:    "return response == response.lower()",
		pass:    func(i int) string { return fmt.Sprintf("all lower %d", i) },
		fail:    func(i int) string { return fmt.Sprintf("NOT LOWER %d", i) },
	},
	{
		keyword: "words",
		body:    "return len(response.split()) < 50",
		pass:    func(i int) string { return fmt.Sprintf("a short answer %d", i) },
		fail:    func(i int) string { return strings.Repeat("word ", 60) + fmt.Sprint(i) },
	},
	{
		keyword: "commas",
		body:    `return "," not in response`,
		pass:    func(i int) string { return fmt.Sprintf("no commas here %d", i) },
		fail:    func(i int) string { return fmt.Sprintf("a, b, %d", i) },
	},
}

var (
	instructionLine = regexp.MustCompile(`Here is the instruction: (.*)`)
	translateLine   = regexp.MustCompile(`Instruction: (.*)`)
)

// queryAnswers rotate across the choices of a query request.
var queryAnswers = []string{
	"a short answer in lowercase without any punctuation marks",
	"A Long Answer, With Capitals, And Commas",
	"another brief lowercase reply",
	"a short answer in lowercase without any punctuation marks",
}

// respond returns the i-th choice for prompt.
func respond(prompt string, i int) string {
	switch {
	case strings.HasPrefix(prompt, "You are an expert for writing instructions"):
		return "Here are some instructions:\n" +
			"- Answer in lowercase letters only\n" +
			"- Use fewer than 50 words\n" +
			"- Do not use any commas\n" +
			"- Write your answer as a haiku"
	case strings.HasPrefix(prompt, "You are an expert for writing evaluation functions"):
		m := instructionLine.FindStringSubmatch(prompt)
		if m == nil {
			return "I could not find the instruction."
		}
		return verifierAnswer(m[1], i)
	case strings.HasPrefix(prompt, "Please translate"):
		m := translateLine.FindStringSubmatch(prompt)
		if m == nil {
			return "Chinese: ?"
		}
		ins := strings.TrimSpace(m[1])
		return fmt.Sprintf("Chinese: (omitted)\nBack: %s\nBack: Please %s\nBack: %s, please", ins, lowerFirst(ins), ins)
	case strings.HasPrefix(prompt, "Please determine the relationship"):
		return "entailment"
	case strings.HasPrefix(prompt, "Please answer the query"):
		return queryAnswers[i%len(queryAnswers)]
	}
	return "Hello, nice day!"
}

// verifierAnswer writes a JSON verifier answer for instructions the mock
// knows, and a refusal otherwise.
func verifierAnswer(instruction string, i int) string {
	lower := strings.ToLower(instruction)
	for _, f := range families {
		if !strings.Contains(lower, f.keyword) {
			continue
		}
		fn := fmt.Sprintf("def evaluate(response):\n    # variant %d\n    %s", i, f.body)
		body, _ := json.Marshal(map[string]any{
			"func": fn,
			"cases": []map[string]any{
				{"input": f.pass(i), "output": true},
				{"input": f.fail(i), "output": false},
			},
		})
		return "```json\n" + string(body) + "\n```"
	}
	return "I am not able to write a function for this instruction."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
