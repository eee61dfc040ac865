package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

func buildMatchPrompt(answerText string, concepts []string) string {
	conceptsJSON, _ := json.Marshal(concepts)

	var sb strings.Builder
	sb.WriteString("You are evaluating a candidate's spoken answer to an interview question.\n\n")
	sb.WriteString("KEY CONCEPTS: ")
	sb.Write(conceptsJSON)
	sb.WriteString("\n\nCANDIDATE ANSWER:\n")
	sb.WriteString(answerText)
	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("- Decide for EACH key concept whether the answer covers it. Paraphrases and synonyms count; the exact wording does not need to appear.\n")
	sb.WriteString("- Every concept must appear in exactly one of the two arrays, spelled exactly as given in KEY CONCEPTS.\n")
	sb.WriteString("- Do not invent concepts that are not in the list.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"mentioned_concepts": ["..."], "missed_concepts": ["..."]}`)
	sb.WriteString("\n")

	return sb.String()
}

func buildSynthesisPrompt(responses []ResponseSummary) string {
	responsesJSON, _ := json.MarshalIndent(responses, "", "  ")

	var sb strings.Builder
	sb.WriteString("You are an experienced technical interviewer writing the final assessment of a candidate. ")
	sb.WriteString(fmt.Sprintf("Below are the %d scored responses from the interview, in question order. ", len(responses)))
	sb.WriteString("Scores are percentages.\n\n")
	sb.WriteString("SCORED RESPONSES:\n")
	sb.Write(responsesJSON)
	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("- List concrete strengths and concrete areas for improvement, grounded in the feedback above.\n")
	sb.WriteString("- recommendation must be exactly one of: strong_hire, hire, maybe, no_hire.\n")
	sb.WriteString("- skills_distribution maps skill labels of your choosing to scores from 0 to 100.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"strengths": ["..."], "areas_for_improvement": ["..."], "recommendation": "...", "skills_distribution": {"...": 0}}`)
	sb.WriteString("\n")

	return sb.String()
}
