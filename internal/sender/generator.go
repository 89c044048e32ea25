package sender

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// EventTypes lists the event types with a dedicated payload shape.
var EventTypes = []string{"test", "github.push", "github.pull_request", "github.issues", "user.created", "payment.success", "order.updated", "order.completed"}

// Generate builds a realistic payload for eventType. Unknown types get the
// "test" shape.
func Generate(eventType string, index int) map[string]any {
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"eventId":   fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), index),
		"source":    "hookscope-sender",
	}
	for k, v := range body(eventType, index) {
		payload[k] = v
	}
	return payload
}

func body(eventType string, index int) map[string]any {
	switch eventType {
	case "github.push":
		repo := gofakeit.Username() + "/" + gofakeit.Word()
		commits := make([]map[string]any, gofakeit.IntRange(1, 4))
		for i := range commits {
			commits[i] = map[string]any{
				"id":      gofakeit.UUID(),
				"message": gofakeit.Sentence(5),
				"author":  map[string]any{"name": gofakeit.Name(), "email": gofakeit.Email()},
			}
		}
		return map[string]any{
			"ref":        "refs/heads/main",
			"before":     gofakeit.LetterN(40),
			"after":      gofakeit.LetterN(40),
			"repository": map[string]any{"name": repo, "full_name": repo, "private": false},
			"pusher":     map[string]any{"name": gofakeit.Username(), "email": gofakeit.Email()},
			"commits":    commits,
		}
	case "github.pull_request":
		return map[string]any{
			"action": gofakeit.RandomString([]string{"opened", "closed", "reopened", "synchronize"}),
			"pull_request": map[string]any{
				"number": gofakeit.IntRange(1, 5000),
				"title":  gofakeit.Sentence(4),
				"user":   map[string]any{"login": gofakeit.Username()},
			},
		}
	case "github.issues":
		return map[string]any{
			"action": gofakeit.RandomString([]string{"opened", "closed", "labeled", "assigned"}),
			"issue": map[string]any{
				"number": gofakeit.IntRange(1, 5000),
				"title":  gofakeit.Sentence(4),
				"user":   map[string]any{"login": gofakeit.Username()},
			},
		}
	case "user.created":
		return map[string]any{
			"user": map[string]any{
				"id":         fmt.Sprintf("user_%d", index),
				"email":      gofakeit.Email(),
				"name":       gofakeit.Name(),
				"created_at": time.Now().UTC().Format(time.RFC3339),
			},
		}
	case "payment.success":
		return map[string]any{
			"payment": map[string]any{
				"id":       "pay_" + gofakeit.UUID(),
				"amount":   gofakeit.IntRange(100, 1100),
				"currency": "USD",
				"status":   "completed",
			},
			"customer": map[string]any{"id": fmt.Sprintf("cust_%d", index), "email": gofakeit.Email()},
		}
	case "order.updated", "order.completed":
		status := "completed"
		if eventType == "order.updated" {
			status = gofakeit.RandomString([]string{"pending", "processing", "completed", "cancelled"})
		}
		return map[string]any{
			"order": map[string]any{
				"id":     fmt.Sprintf("order_%d", index),
				"status": status,
				"total":  gofakeit.IntRange(50, 550),
				"items": []map[string]any{{
					"id":       fmt.Sprintf("item_%d_1", index),
					"name":     gofakeit.Company() + " " + gofakeit.Word(),
					"quantity": gofakeit.IntRange(1, 5),
					"price":    gofakeit.IntRange(10, 110),
				}},
			},
		}
	default:
		return map[string]any{
			"message": "test webhook",
			"data": map[string]any{
				"test":   true,
				"index":  index,
				"random": gofakeit.Float64(),
			},
		}
	}
}
