package stages

import (
	"fmt"
	"strings"
)

func augmentPrompt(seeds []string) string {
	return fmt.Sprintf(`You are an expert for writing instructions. Please provide 50 different instructions that meet the following requirements:
- Instructions are about the format but not style of a response
- Whether instructions can be easily evaluate by a Python function
Here are some examples of instructions we need:
%s
Do not generate instructions about writing style, using metaphor, or translation. Here are some examples of instructions we do not need:
- Incorporate a famous historical quote seamlessly into your answer
- Translate your answer into Pig Latin
- Use only words that are also a type of food
- Respond with a metaphor in every sentence
- Write the response as if you are a character from a Shakespearean play
Please generate one instruction per line in your response and start each line with '- '.
`, strings.Join(seeds, "\n"))
}

func verifierPrompt(instruction string) string {
	return fmt.Sprintf(`You are an expert for writing evaluation functions in Python to evaluate whether a response strictly follows an instruction.
Here is the instruction: %s
Please write a Python function named `+"`evaluate`"+` to evaluate whether an input string `+"`response`"+` follows this instruction. If it follows, simply return True, otherwise return False.
Please response with a single JSON includes the evaluation function in the key `+"`func`"+`, and a list of three test cases in the key `+"`cases`"+`, which includes an input in the key `+"`input`"+` and an expected output in the key `+"`output`"+` in (true, false).
Here is an example of output JSON format: {"func": JSON_STR(use only \\n instead of \n), "cases": [{"input": str, "output": str}]}.`, instruction)
}

func backTranslatePrompt(instruction string) string {
	return fmt.Sprintf(`Please translate the following instruction into Chinese, and then translate it back to English. Please make sure the back-translation maintains the original meaning but uses different wording.
Instruction: %s
Please respond in the following format:
Chinese: {Chinese translation}
Back: {back translation to English}
Back: {another back translation}
Back: {another back translation}`, instruction)
}

func nliPrompt(original, back string) string {
	return fmt.Sprintf(`Please determine the relationship between the following two sentences - whether it is entailment, neutral, or contradiction.
Sentence 1: %s
Sentence 2: %s
Please only respond with one of these words: entailment, neutral, or contradiction.`, original, back)
}

func queryPrompt(instruction, query string) string {
	return fmt.Sprintf("Please answer the query strictly following the instruction.\n[instruction] %s\n[Query] %s", instruction, query)
}
