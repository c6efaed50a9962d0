package openai

import (
	"fmt"
	"strings"

	"reviews_dashboard/internal/wbapi"
)

// systemPromptBase holds the fixed reply rules. The caller-supplied free-text
// instructions are appended after it, so the pair (feedback, instructions)
// always yields the same prompt.
const systemPromptBase = `Ты - помощник для ответов на отзывы покупателей на маркетплейсе Wildberries.

Правила ответов:
1. Будь вежливым и профессиональным
2. Благодари за отзыв
3. Если отзыв негативный - извинись и предложи решение
4. Если отзыв позитивный - поблагодари и пригласи снова
5. Ответ должен быть от 50 до 300 символов
6. Обращайся к покупателю по имени, если оно указано
7. Если к отзыву приложены фото или видео - отметь, что вы их посмотрели`

// BuildSystemPrompt returns the system turn: fixed rules plus optional
// seller instructions.
func BuildSystemPrompt(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return systemPromptBase
	}
	return systemPromptBase + "\n\nОсобые инструкции: " + instructions
}

// BuildUserPrompt assembles the user turn from the feedback fields.
// Optional fields (pros, cons, media) are included only when present.
func BuildUserPrompt(fb wbapi.Feedback) string {
	var b strings.Builder

	name := fb.UserName
	if name == "" {
		name = "покупателя"
	}
	fmt.Fprintf(&b, "Отзыв от %s:\n", name)

	product := fb.ProductDetails.ProductName
	if product == "" {
		product = "Неизвестный товар"
	}
	fmt.Fprintf(&b, "Товар: %s\n", product)
	fmt.Fprintf(&b, "Оценка: %d/5\n", fb.ProductValuation)
	fmt.Fprintf(&b, "Текст: %s\n", fb.Text)

	if fb.Pros != "" {
		fmt.Fprintf(&b, "Достоинства: %s\n", fb.Pros)
	}
	if fb.Cons != "" {
		fmt.Fprintf(&b, "Недостатки: %s\n", fb.Cons)
	}
	if fb.HasMedia() {
		b.WriteString("К отзыву приложены фото или видео.\n")
	}

	b.WriteString("\nНапиши ответ на этот отзыв.")
	return b.String()
}
