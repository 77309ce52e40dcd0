// Package prompts holds the system instructions and prompt builders for
// every model call the backend makes. User-supplied strings destined for a
// prompt pass through Sanitize first.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dishaguide/disha/internal/profile"
)

// ChatInstruction steers the conversational mentor model.
const ChatInstruction = `You are 'Disha Guide', a personalized AI career mentor for Indian students.
Your role: Act like a thoughtful human mentor who helps students explore their education, interests, and goals to discover ideal career paths.
Conversation Rules:
1. Start warmly (ask name and wellbeing).
2. Progress step-by-step through education, interests, skills, goals.
3. Give relevant, inspiring guidance, not robotic answers.
4. If the user expresses interest or agreement about a career, confirm it clearly.
5. Encourage reflection before recommending final career paths.
6. Output only short conversational text (no JSON, no code).`

// ExtractionInstruction steers the profile extraction model toward a strict
// JSON object with only the recognized profile keys.
const ExtractionInstruction = `You are a data extractor. From the given conversation between an AI career guide and a student, extract a structured JSON object ONLY with the keys:
{
  "name": "string or null",
  "education": "string or null",
  "interests": ["list of strings"],
  "skills": ["list of strings"],
  "career_goals": "string or null"
}
Respond with valid JSON only, no explanations.`

// RecommendationInstruction steers the career recommender toward a strict
// JSON array of career options.
const RecommendationInstruction = `You are a structured career recommender for the Indian job market. Given a student's profile, including their current education, return a JSON array of career options.
Each object must include:
{
  "career_name": "string",
  "description": "string (2-3 sentences)",
  "pathway": ["list of 5-7 key skills or steps"],
  "education_pathway": ["list of next educational steps, e.g., 'Master's in AI', 'Certification in Cloud Computing'. If current education is sufficient, return an empty array."]
}
Respond with a valid JSON array only, no text before or after.`

// Chat builds the conversational prompt from the transcript so far.
func Chat(conversation string) string {
	return fmt.Sprintf(
		"You are Disha Guide, a friendly AI career mentor helping Indian students.\n"+
			"Guide step-by-step through name, education, interests, skills, and career goals.\n\n"+
			"Here's the conversation so far:\n\n%s\n\nAI:", conversation)
}

// Extraction builds the profile extraction prompt from the user-side
// transcript.
func Extraction(transcript string) string {
	return fmt.Sprintf("Extract a structured JSON profile from the user's statements (no explanations):\n\n%s\n\nJSON:", transcript)
}

// Recommendation builds the career recommendation prompt from a profile.
func Recommendation(p profile.Profile) string {
	encoded, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf(
		"Based on the following student profile for the Indian job market, recommend 5-7 career options.\n"+
			"Each must include `career_name`, `description`, `pathway`, and `education_pathway` fields.\n"+
			"Return ONLY a JSON array.\n\nProfile:\n%s", encoded)
}

// Assessment builds the quiz generation prompt for one skill in the context
// of a career.
func Assessment(skill, career string) string {
	return fmt.Sprintf(`Create a 5-question multiple-choice quiz to assess a user's skill in '%s' for a '%s' career.

Your response MUST be a single, valid JSON object. Do not include any other text, explanations, or markdown formatting.
The JSON object must follow this exact structure:
{
  "quiz_title": "Quiz Title About The Skill",
  "questions": [
    {
      "question_text": "What is the question?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_answer": "The correct option text",
      "explanation": "A brief, clear explanation of why the correct answer is right."
    }
  ]
}`, Sanitize(skill), Sanitize(career))
}

// Resources builds the search-grounded prompt for finding learning links.
func Resources(skill, career string) string {
	return fmt.Sprintf(
		"You have access to a web search tool. Use it to find the top 6 free, high-quality, relevant, trustworthy online learning resources/guides "+
			"for the skill '%s' in the context of a '%s' career. "+
			"Prioritize official documentation, highly-rated tutorials, and comprehensive articles from globally recognized platforms "+
			"(like Coursera, edX, free university courses). Avoid outdated materials. "+
			"After finding them, you MUST format the output as a single, valid JSON object. "+
			"Do not include any other text or explanations outside of the JSON. "+
			`The JSON object must follow this exact structure: {"resources": [{"title": "...", "url": "...", "type": "Official Docs/In-depth Tutorial/University Course/Video"}]}`,
		Sanitize(skill), Sanitize(career))
}

// IncorrectQuestion is one quiz question the user answered wrong, summarized
// for the feedback prompt.
type IncorrectQuestion struct {
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// Feedback builds the study-topics prompt from the questions answered
// incorrectly.
func Feedback(incorrect []IncorrectQuestion) string {
	var sb strings.Builder
	for _, q := range incorrect {
		fmt.Fprintf(&sb, "Question: %s\nCorrect Answer: %s\nExplanation: %s\n---\n",
			Sanitize(q.QuestionText), Sanitize(q.CorrectAnswer), Sanitize(q.Explanation))
	}
	return fmt.Sprintf(`As an expert tutor, analyze the following questions that a student answered incorrectly.
Based on these questions, identify the 2-4 most important underlying topics or concepts the student should focus on to improve.
Do not just repeat the questions. Synthesize the information and provide a high-level list of study points.
Incorrect Questions:
%s
Your response MUST be a single, valid JSON object, structured exactly like this:
{
  "topics": [
    "Topic 1: A brief description...",
    "Topic 2: A brief description..."
  ]
}`, sb.String())
}

const maxSanitizedLen = 200

// Sanitize strips characters outside a conservative allowlist from
// user-supplied text before it reaches a prompt, and caps the length.
func Sanitize(text string) string {
	var sb strings.Builder
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '.', r == ',', r == '!', r == '?', r == '-':
			sb.WriteRune(r)
		}
	}
	out := strings.TrimSpace(sb.String())
	if len(out) > maxSanitizedLen {
		out = out[:maxSanitizedLen]
	}
	return out
}

// Transcript renders chat turns into the "User:/AI:" text the chat prompt
// expects. Empty sides are skipped.
func Transcript(turns []profile.ChatTurn) string {
	var parts []string
	for _, turn := range turns {
		if turn.User.Text != "" {
			parts = append(parts, "User: "+turn.User.Text)
		}
		if turn.AI.Text != "" {
			parts = append(parts, "AI: "+turn.AI.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// UserTranscript renders only the user utterances, one per line. Assistant
// text is excluded: it is not a source of factual claims about the user.
func UserTranscript(turns []profile.ChatTurn) string {
	var parts []string
	for _, turn := range turns {
		if turn.User.Text != "" {
			parts = append(parts, "User: "+turn.User.Text)
		}
	}
	return strings.Join(parts, "\n")
}
