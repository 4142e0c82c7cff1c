// Copyright 2025 TCG Assistant
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"tcg-agent/platform/connectors/weathergov"
	"tcg-agent/platform/llm"
)

// ToolReadyToSummarize is the marker tool the weather agent calls right
// before writing its final summary. Streaming handlers use it to gate
// which text reaches the client.
const ToolReadyToSummarize = "ready_to_summarize"

// weatherSystemPrompt drives the NWS points -> forecast URL chain.
const weatherSystemPrompt = `You are a weather assistant that reports current forecasts using the National Weather Service API (api.weather.gov).

To answer a weather question:
1. Determine the latitude and longitude of the requested location from your knowledge.
2. Use the http_request tool to GET https://api.weather.gov/points/{latitude},{longitude} and read the "forecast" URL from the response properties.
3. Use the http_request tool to GET that forecast URL and read the forecast periods.
4. Call the ready_to_summarize tool.
5. After calling ready_to_summarize, write a concise, friendly summary of the current forecast for the user. Only the text you produce after calling ready_to_summarize is shown to the user, so the summary must be complete on its own.

Only request URLs on the api.weather.gov host. If a request fails, explain what went wrong instead of inventing a forecast.`

// httpRequestSchema is the input schema for the http_request tool
var httpRequestSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"url": {
			"type": "string",
			"description": "The api.weather.gov URL to GET"
		}
	},
	"required": ["url"]
}`)

var emptySchema = json.RawMessage(`{"type": "object", "properties": {}}`)

// NewReadyToSummarizeTool returns the marker tool shared by the weather
// and coordinator agents.
func NewReadyToSummarizeTool() Tool {
	return NewFuncTool(
		ToolReadyToSummarize,
		"Call this tool once you have gathered everything you need, immediately before writing the final summary for the user.",
		emptySchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			return "Ok - continue providing the summary!", nil
		},
	)
}

// NewWeatherAgent creates the weather agent backed by the NWS client.
func NewWeatherAgent(provider llm.StreamingProvider, nws *weathergov.Client, opts Options) *Agent {
	httpTool := NewFuncTool(
		"http_request",
		"Make a GET request to the National Weather Service API. Only api.weather.gov URLs are allowed.",
		httpRequestSchema,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", fmt.Errorf("invalid http_request input: %w", err)
			}
			if args.URL == "" {
				return "", fmt.Errorf("http_request requires a url")
			}
			return nws.Get(ctx, args.URL)
		},
	)

	return New("weather", weatherSystemPrompt, provider, []Tool{httpTool, NewReadyToSummarizeTool()}, opts)
}

// WeatherPrompt formats a location into the question sent to the agent.
func WeatherPrompt(location string) string {
	return fmt.Sprintf("What is the weather like in %s today?", location)
}
