package openai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"reviews_dashboard/internal/wbapi"
)

func TestBuildSystemPrompt(t *testing.T) {
	base := BuildSystemPrompt("")
	assert.Contains(t, base, "вежливым")
	assert.Contains(t, base, "от 50 до 300 символов")
	assert.NotContains(t, base, "Особые инструкции")

	custom := BuildSystemPrompt("  предлагай скидку 10%  ")
	assert.True(t, strings.HasPrefix(custom, base))
	assert.Contains(t, custom, "Особые инструкции: предлагай скидку 10%")
}

func TestBuildUserPrompt_AllFields(t *testing.T) {
	fb := wbapi.Feedback{
		UserName:         "Иван",
		Text:             "Хороший товар",
		Pros:             "Цена",
		Cons:             "Долгая доставка",
		ProductValuation: 4,
		ProductDetails:   wbapi.ProductDetails{ProductName: "Чайник"},
		Video:            &wbapi.Video{Link: "https://video"},
	}

	p := BuildUserPrompt(fb)
	assert.Contains(t, p, "Отзыв от Иван:")
	assert.Contains(t, p, "Товар: Чайник")
	assert.Contains(t, p, "Оценка: 4/5")
	assert.Contains(t, p, "Достоинства: Цена")
	assert.Contains(t, p, "Недостатки: Долгая доставка")
	assert.Contains(t, p, "приложены фото или видео")
	assert.Contains(t, p, "Напиши ответ на этот отзыв.")
}

func TestBuildUserPrompt_Fallbacks(t *testing.T) {
	p := BuildUserPrompt(wbapi.Feedback{ProductValuation: 3})
	assert.Contains(t, p, "Отзыв от покупателя:")
	assert.Contains(t, p, "Товар: Неизвестный товар")
	assert.NotContains(t, p, "Достоинства")
	assert.NotContains(t, p, "Недостатки")
	assert.NotContains(t, p, "приложены фото")
}

func TestBuildUserPrompt_Deterministic(t *testing.T) {
	fb := wbapi.Feedback{UserName: "Анна", Text: "ок", ProductValuation: 5}
	assert.Equal(t, BuildUserPrompt(fb), BuildUserPrompt(fb))
	assert.Equal(t, BuildSystemPrompt("x"), BuildSystemPrompt("x"))
}
