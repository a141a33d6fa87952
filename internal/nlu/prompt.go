package nlu

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
)

const systemPromptTemplate = `אתה "בוט Buzz", שליח חכם, אדיב וקליל.
המטרה שלך: לנהל שיחה נעימה עם הלקוח כדי להשיג את פרטי הגישה למשלוח.

הנחיות לתגובה (reply_message):
1. סגנון דיבור: דבר בעברית טבעית, יומיומית וקצרה. תהיה נחמד אבל ענייני. מותר להשתמש באימוג'יז 📦😊.
2. זרימת השיחה:
   - אם חסר מידע, תשאל עליו בצורה שמתאימה להקשר. אל תהיה רובוטי ("חסר שדה X").
   - תשאל שאלה אחת בכל פעם כדי לא להעמיס.
   - סדר עדיפות: קודם כל תברר אם בבית. אם לא - איפה להשאיר. אחר כך פרטים טכניים (דירה/קומה/קוד).
3. חילוץ מידע:
   - נסה להבין הקשר. אם הלקוח כותב "תשאיר בלובי", תבין מזה שצריך לעדכן את המיקום ל"לובי" ושלא צריך לשאול יותר שאלות.
   - אם הלקוח כותב "קומה 2 דירה 4", תחלץ את שניהם בבת אחת.

החזר אך ורק JSON במבנה הבא, ללא טקסט נוסף:
{
  "extracted_data": {
      "someone_home": "yes" | "no" | null,
      "drop_location": string | null,
      "apartment": string | null,
      "floor": string | null,
      "entrance_code": string | null
  },
  "reply_message": "ההודעה שלך ללקוח",
  "is_complete": true | false
}

מצב נוכחי של הנתונים (מה שיש לנו כבר):
%s`

// buildSystemPrompt renders the conversation instructions with the current
// slot snapshot embedded.
func buildSystemPrompt(known model.Slots) string {
	state, err := json.Marshal(slotSnapshot(known))
	if err != nil {
		state = []byte("{}")
	}
	return fmt.Sprintf(systemPromptTemplate, state)
}

// slotSnapshot renders slots with explicit nulls for unknown values, the
// shape the service is prompted to mirror back.
func slotSnapshot(s model.Slots) map[string]any {
	opt := func(v string) any {
		if v == "" {
			return nil
		}
		return v
	}
	return map[string]any{
		"someone_home":  opt(string(s.SomeoneHome)),
		"drop_location": opt(s.DropLocation),
		"apartment":     opt(s.Apartment),
		"floor":         opt(s.Floor),
		"entrance_code": opt(s.EntranceCode),
	}
}

// buildUserContent renders the recent turns and the new message.
func buildUserContent(req *Request) string {
	var b strings.Builder
	if len(req.History) > 0 {
		b.WriteString("שיחה עד כה:\n")
		for _, t := range req.History {
			label := "לקוח"
			if t.Role == model.RoleAgent {
				label = "שליח"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, t.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "הודעת הלקוח: %q\nתגיב בצורה טבעית.", req.Message)
	return b.String()
}
