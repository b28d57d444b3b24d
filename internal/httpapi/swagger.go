package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) swaggerUI(w http.ResponseWriter, r *http.Request) {
	const page = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>PokeQuest API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/docs/openapi.json',
      dom_id: '#swagger-ui'
    });
  </script>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (h *Handler) swaggerSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPISpec(requestBaseURL(r)))
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost:8080"
	}
	return scheme + "://" + host
}

func schemaRef(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

func okResponse(description string, schema string) map[string]any {
	return map[string]any{"description": description, "content": jsonContent(schemaRef(schema))}
}

func errorResponse(description string) map[string]any {
	return map[string]any{"description": description, "content": jsonContent(schemaRef("ErrorResponse"))}
}

func jsonBody(schema string) map[string]any {
	return map[string]any{"required": true, "content": jsonContent(schemaRef(schema))}
}

var userParameter = map[string]any{
	"name":        "X-User-ID",
	"in":          "header",
	"required":    false,
	"description": "Player id, defaults to guest. The user_id query parameter is accepted as well.",
	"schema":      map[string]any{"type": "string"},
}

func operation(id string, summary string, responses map[string]any, extra ...map[string]any) map[string]any {
	op := map[string]any{
		"summary":     summary,
		"operationId": id,
		"parameters":  []map[string]any{userParameter},
		"responses":   responses,
	}
	for _, e := range extra {
		for k, v := range e {
			if k == "parameters" {
				op[k] = append(op[k].([]map[string]any), v.([]map[string]any)...)
				continue
			}
			op[k] = v
		}
	}
	return op
}

func openAPISpec(serverURL string) map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "PokeQuest API",
			"description": "Catch collectibles by answering quiz questions and earn rewards for daily step goals.",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL},
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary":     "Health check",
					"operationId": "healthz",
					"responses":   map[string]any{"200": okResponse("OK", "HealthResponse")},
				},
			},
			"/api/v1/catch/trigger": map[string]any{
				"post": operation("triggerCatch", "Start a catch attempt", map[string]any{
					"202": okResponse("Attempt started", "TriggerResponse"),
					"200": okResponse("An attempt is already in progress; nothing changed", "TriggerResponse"),
					"503": errorResponse("Service is shutting down"),
				}),
			},
			"/api/v1/catch/answer": map[string]any{
				"post": operation("answer", "Answer the pending quiz question", map[string]any{
					"200": okResponse("Resolved attempt", "CatchSnapshot"),
					"400": errorResponse("Missing choice"),
					"409": errorResponse("No question is awaiting an answer"),
					"500": errorResponse("Internal error"),
				}, map[string]any{"requestBody": jsonBody("AnswerRequest")}),
			},
			"/api/v1/catch/state": map[string]any{
				"get": operation("catchState", "Current catch session", map[string]any{
					"200": okResponse("Current snapshot", "CatchSnapshot"),
				}),
			},
			"/api/v1/catch/events": map[string]any{
				"get": operation("catchEvents", "Websocket stream of catch snapshots, current snapshot first", map[string]any{
					"101": map[string]any{"description": "Switching to websocket; each text message is a CatchSnapshot"},
				}),
			},
			"/api/v1/catch/session": map[string]any{
				"delete": operation("endSession", "Discard the catch session", map[string]any{
					"200": okResponse("Whether a session existed", "EndSessionResponse"),
				}),
			},
			"/api/v1/collection": map[string]any{
				"get": operation("collection", "Owned collectibles", map[string]any{
					"200": okResponse("Collection", "CollectionResponse"),
				}),
			},
			"/api/v1/badges": map[string]any{
				"get": operation("badges", "Achievement badges derived from the collection", map[string]any{
					"200": okResponse("Badges", "BadgesResponse"),
					"500": errorResponse("Internal error"),
				}),
			},
			"/api/v1/steps": map[string]any{
				"get": operation("steps", "Today's step challenge", map[string]any{
					"200": okResponse("Challenge", "DailyStepChallenge"),
					"500": errorResponse("Internal error"),
				}),
				"put": operation("setSteps", "Replace today's step count", map[string]any{
					"200": okResponse("Challenge", "DailyStepChallenge"),
					"400": errorResponse("Steps out of range"),
					"500": errorResponse("Internal error"),
				}, map[string]any{"requestBody": jsonBody("SetStepsRequest")}),
			},
			"/api/v1/steps/delta": map[string]any{
				"post": operation("addSteps", "Add to today's step count", map[string]any{
					"200": okResponse("Challenge", "DailyStepChallenge"),
					"400": errorResponse("Delta out of range"),
					"500": errorResponse("Internal error"),
				}, map[string]any{"requestBody": jsonBody("AddStepsRequest")}),
			},
			"/api/v1/rewards/claim": map[string]any{
				"post": operation("claimReward", "Claim today's step goal reward", map[string]any{
					"200": okResponse("Granted reward", "ClaimResult"),
					"409": errorResponse("Goal not completed or reward already claimed"),
					"503": errorResponse("Reward catalog is empty"),
					"500": errorResponse("Internal error"),
				}),
			},
			"/api/v1/report/daily": map[string]any{
				"get": operation("dailyReport", "Daily activity report", map[string]any{
					"200": okResponse("Report", "DailyReport"),
					"400": errorResponse("Malformed date"),
					"500": errorResponse("Internal error"),
				}, map[string]any{"parameters": []map[string]any{{
					"name":        "date",
					"in":          "query",
					"required":    false,
					"description": "Day in YYYY-MM-DD, defaults to today",
					"schema":      map[string]any{"type": "string"},
				}}}),
			},
			"/api/v1/leaderboard": map[string]any{
				"get": map[string]any{
					"summary":     "Players ranked by collection size then today's steps",
					"operationId": "leaderboard",
					"parameters": []map[string]any{{
						"name":        "limit",
						"in":          "query",
						"required":    false,
						"description": "Number of entries, default 10, max 100",
						"schema":      map[string]any{"type": "integer"},
					}},
					"responses": map[string]any{
						"200": okResponse("Ranking", "LeaderboardResponse"),
						"400": errorResponse("Malformed limit"),
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": componentSchemas(),
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func arrayOf(schema map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": schema}
}

var (
	stringType  = map[string]any{"type": "string"}
	integerType = map[string]any{"type": "integer"}
	booleanType = map[string]any{"type": "boolean"}
	dateTime    = map[string]any{"type": "string", "format": "date-time"}
)

func componentSchemas() map[string]any {
	return map[string]any{
		"HealthResponse": object(map[string]any{"status": stringType}),
		"ErrorResponse":  object(map[string]any{"error": stringType}),
		"CollectibleItem": object(map[string]any{
			"id":          integerType,
			"name":        stringType,
			"image_ref":   stringType,
			"category":    stringType,
			"description": stringType,
			"rarity_tier": map[string]any{"type": "string", "enum": []string{"common", "uncommon", "rare", "legendary"}},
		}),
		"OwnedItem": map[string]any{
			"allOf": []map[string]any{
				schemaRef("CollectibleItem"),
				object(map[string]any{
					"acquired_via": map[string]any{"type": "string", "enum": []string{"quiz", "goal"}},
					"acquired_at":  dateTime,
					"mirror_ref":   stringType,
				}),
			},
		},
		"QuizQuestion": object(map[string]any{
			"question_text": stringType,
			"options":       arrayOf(stringType),
		}),
		"CatchSnapshot": object(map[string]any{
			"attempt_id":       stringType,
			"state":            map[string]any{"type": "string", "enum": []string{"idle", "fetching", "awaiting_answer", "resolved"}},
			"outcome":          map[string]any{"type": "string", "enum": []string{"success", "failure"}},
			"pending_item":     schemaRef("CollectibleItem"),
			"pending_question": schemaRef("QuizQuestion"),
			"added":            booleanType,
			"last_error":       stringType,
		}, "state"),
		"TriggerResponse": object(map[string]any{
			"accepted": booleanType,
			"state":    schemaRef("CatchSnapshot"),
		}),
		"AnswerRequest":      object(map[string]any{"choice": stringType}, "choice"),
		"EndSessionResponse": object(map[string]any{"ended": booleanType}),
		"CollectionResponse": object(map[string]any{
			"user_id": stringType,
			"count":   integerType,
			"items":   arrayOf(schemaRef("OwnedItem")),
		}),
		"Badge": object(map[string]any{
			"id":          stringType,
			"name":        stringType,
			"description": stringType,
			"category":    stringType,
			"unlocked":    booleanType,
			"progress":    integerType,
			"target":      integerType,
		}),
		"BadgesResponse": object(map[string]any{
			"user_id": stringType,
			"badges":  arrayOf(schemaRef("Badge")),
		}),
		"StepHistoryEntry": object(map[string]any{"date_key": stringType, "steps": integerType}),
		"DailyStepChallenge": object(map[string]any{
			"date_key":       stringType,
			"current_steps":  integerType,
			"daily_goal":     integerType,
			"completed":      booleanType,
			"reward_claimed": booleanType,
			"reward_item_id": integerType,
			"history":        arrayOf(schemaRef("StepHistoryEntry")),
		}),
		"SetStepsRequest": object(map[string]any{"steps": integerType}, "steps"),
		"AddStepsRequest": object(map[string]any{"delta": integerType}, "delta"),
		"ClaimResult": object(map[string]any{
			"item":      schemaRef("CollectibleItem"),
			"added":     booleanType,
			"challenge": schemaRef("DailyStepChallenge"),
		}),
		"DailyReport": object(map[string]any{
			"date":           stringType,
			"user_id":        stringType,
			"steps":          integerType,
			"daily_goal":     integerType,
			"goal_completed": booleanType,
			"acquired":       arrayOf(schemaRef("OwnedItem")),
			"history":        arrayOf(schemaRef("StepHistoryEntry")),
			"generated_text": stringType,
			"generated_at":   dateTime,
		}),
		"LeaderboardEntry": object(map[string]any{
			"rank":        integerType,
			"user_id":     stringType,
			"owned_items": integerType,
			"today_steps": integerType,
		}),
		"LeaderboardResponse": object(map[string]any{
			"entries": arrayOf(schemaRef("LeaderboardEntry")),
		}),
	}
}
