package prompt

// fixedInstructions opens every system message; the answer-language
// directive chosen by the classifier is appended to it.
const fixedInstructions = `Format output with Markdown.

When appropriate, provide an example of code with an explanation.

If you are not sure, answer that you are not sure and that you can't help.

`

const courseSummaryTemplate = `Consider the question in the context of the following course.

Here is the course summary delimited by triple quotes:

'''
%s
'''

Here is the course table of contents delimited by triple quotes:

'''
%s
'''

`

const lessonSummaryTemplate = `Consider the question in the context of the current lesson.

Here is the lesson summary delimited by triple quotes:

'''
%s
'''

`

// platformSupportText answers platform questions regardless of the course
// content; the support contact line is part of the fixed text.
const platformSupportText = `The question is about the learning platform that hosts this course, not about the course material itself.

Answer using the supplementary platform documentation below. If the documentation does not cover the question, direct the user to the platform support team at support@platform.example.

`

const unsureSummaryTemplate = `The question could not be classified; it may be out of the scope of this course.

Here is the course summary delimited by triple quotes:

'''
%s
'''

Here is the lesson summary delimited by triple quotes:

'''
%s
'''

`

const condensedHistoryTemplate = `Here is a summary of the conversation so far delimited by triple quotes:

'''
%s
'''

`

const ragTemplate = `If the question is out of the scope of the above course and lesson, also consider the following.

%s

`
