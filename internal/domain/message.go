package domain

// ChatResult es la respuesta de un turno de conversación con doble enrutamiento.
// EmotionIn/EmotionReply quedan vacías cuando no se disparó ninguna emoción.
type ChatResult struct {
	Reply             string  `json:"reply"`
	EmotionIn         string  `json:"emotion_in"`
	EmotionInScore    float64 `json:"emotion_in_score"`
	EmotionReply      string  `json:"emotion_reply"`
	EmotionReplyScore float64 `json:"emotion_reply_score"`
}
