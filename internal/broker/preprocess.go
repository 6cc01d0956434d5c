package broker

import (
	"fmt"
	"regexp"
	"strings"

	"nexus/internal/config"
)

// urlPattern matches explicit URLs in request text.
var urlPattern = regexp.MustCompile(`https?://[^\s,]+`)

// domainPattern matches bare domain mentions like "cnn.com" that users write
// instead of full URLs.
var domainPattern = regexp.MustCompile(`\b([a-zA-Z0-9-]+\.(com|org|net|io|dev|co|ai|news))\b`)

// Request is the raw execute_pipeline input.
type Request struct {
	Request        string
	URL            string
	Channel        string
	SourceLanguage string
	TargetLanguage string
}

// Execution is the preprocessed form handed to discovery and the executor.
type Execution struct {
	FullRequest  string
	InitialInput map[string]interface{}
	Context      map[string]interface{}
}

// PrepareExecution normalizes an execution request. A URL mentioned in the
// request text is promoted to the initial input so the first step has
// something to fetch, and the request is rewritten to lead with the fetch
// when it does not already ask for one.
func PrepareExecution(req Request, defaultChannel string) Execution {
	url := req.URL
	if url == "" {
		if match := urlPattern.FindString(req.Request); match != "" {
			url = match
		} else if match := domainPattern.FindString(req.Request); match != "" {
			url = "https://" + match
		}
	}

	fullRequest := req.Request
	if url != "" && !strings.Contains(strings.ToLower(req.Request), "fetch") {
		fullRequest = fmt.Sprintf("Fetch content from %s, then %s", url, req.Request)
	}

	channel := req.Channel
	if channel == "" {
		channel = defaultChannel
	}
	if channel == "" {
		channel = config.DefaultChannel
	}

	runContext := map[string]interface{}{"channel": channel}
	if req.SourceLanguage != "" {
		runContext["source_language"] = req.SourceLanguage
	}
	if req.TargetLanguage != "" {
		runContext["target_language"] = req.TargetLanguage
	}

	initialInput := map[string]interface{}{}
	if url != "" {
		initialInput["url"] = url
	}

	return Execution{FullRequest: fullRequest, InitialInput: initialInput, Context: runContext}
}
