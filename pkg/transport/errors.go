// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/SahinS14/CognitoForge/pkg/result"
)

// errorBody covers the error shapes the backend emits:
//
//	{"message": "..."}                         plain handlers
//	{"error": "...", "code": "..."}            service errors
//	{"detail": "..."}                          HTTPException(detail=str)
//	{"detail": {"error": "...", ...}}          HTTPException(detail=dict)
//	{"detail": [{"msg": "...", "loc": [...]}]} request validation
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Detail  json.RawMessage `json:"detail"`
}

type detailObject struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

type validationItem struct {
	Msg string `json:"msg"`
	Loc []any  `json:"loc"`
}

// failureFromResponse turns a non-2xx response into a Failure.
//
// The message comes from the first non-empty field of a JSON error body;
// when the body is not JSON or carries no message the generic
// "HTTP <status>: <statusText>" form is used.
func failureFromResponse(status int, body []byte) *result.Failure {
	f := &result.Failure{Status: status}

	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		f.Code = parsed.Code
		switch {
		case parsed.Message != "":
			f.Message = parsed.Message
		case parsed.Error != "":
			f.Message = parsed.Error
		default:
			msg, code := parseDetail(parsed.Detail)
			f.Message = msg
			if f.Code == "" {
				f.Code = code
			}
		}
	}

	if f.Message == "" {
		f.Message = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	return f
}

func parseDetail(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, ""
	}

	var obj detailObject
	if json.Unmarshal(raw, &obj) == nil {
		msg := obj.Message
		if msg == "" {
			msg = obj.Error
		}
		if msg != "" && obj.Details != "" {
			msg = msg + ": " + obj.Details
		}
		return msg, obj.Code
	}

	var items []validationItem
	if json.Unmarshal(raw, &items) == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg == "" {
				continue
			}
			if field := locField(item.Loc); field != "" {
				parts = append(parts, field+": "+item.Msg)
			} else {
				parts = append(parts, item.Msg)
			}
		}
		return strings.Join(parts, "; "), ""
	}

	return "", ""
}

func locField(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
