package classify

const classifyQueryDescription = `Classify the user's question as referring to a course, the current lecture, the platform, or unsure.

- **course** is used when the question is about the course in general, including overall topics or materials.

- **current_lecture** is used when the question is about the current lecture, including the current topic, concept and activities such as questions, code examples, and exercises.

- **platform** is used when the question is about the learning platform where the course is hosted.

- **unsure** is used when you aren't sure how to classify the query.`

const classifyLanguageDescription = `Classify the language of the user's question as Serbian Cyrillic, Serbian Latin, English, or other.`

const continuationDescription = `You are helping a teacher by suggesting follow-up questions they might ask an AI teaching assistant.
The teacher relies on the assistant to generate examples, tests, homework, and explanations.
Your job is to think about what the teacher might ask next, phrased as a question the teacher would say, not as something the assistant would do.
Keep the questions on the short side, up to 100 characters.
Ensure that these follow-up questions:
- Are in the same language and script as the teacher's original question.
- Are concise, actionable, and related to the topic the teacher is asking about.
- Do not repeat any questions the teacher already asked or suggestions already made in this conversation.`

// toolsDefinition is the function schema the completion capability must
// satisfy. Keeping it as plain data decouples the contract from any
// provider SDK types.
var toolsDefinition = []map[string]any{
	{
		"type":   "function",
		"strict": true,
		"function": map[string]any{
			"name":        "question_classification",
			"description": "Restates the question and classifies it.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"restated_question": map[string]any{
						"type":        "string",
						"description": "Put yourself in the teacher's shoes and rephrase the question in a way that is clear and concise.",
					},
					"classify_language": map[string]any{
						"type":        "string",
						"enum":        []string{"sr-Cyrl", "sr-Latn", "en", "default"},
						"description": classifyLanguageDescription,
					},
					"classify_query": map[string]any{
						"type":        "string",
						"enum":        []string{"course", "current_lecture", "platform", "unsure"},
						"description": classifyQueryDescription,
					},
					"possible_conversation_continuation": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"continuation_1": map[string]any{
								"type":        "string",
								"description": "The first follow-up ask or question.",
							},
							"continuation_2": map[string]any{
								"type":        "string",
								"description": "The second follow-up ask or question.",
							},
						},
						"required":    []string{"continuation_1", "continuation_2"},
						"description": continuationDescription,
					},
				},
				"required":             []string{"restated_question", "classify_language", "classify_query", "possible_conversation_continuation"},
				"additionalProperties": false,
			},
		},
	},
}

var toolChoice = map[string]any{
	"type": "function",
	"function": map[string]any{
		"name": "question_classification",
	},
}

const instructions = `Consider the question in the context of the following course and lesson.

Here is the course summary delimited by triple quotes:

'''
%s
'''

Here is the lesson summary delimited by triple quotes:

'''
%s
'''
`

const instructionsWithCondensed = instructions + `
Here is a summary of the conversation so far delimited by triple quotes:

'''
%s
'''
`
