// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package notify

import "context"

// Result is a channel's per-send outcome (spec.md §4.7 "Channel set":
// send(event) -> {ok | transient_error | permanent_error}).
type Result int

const (
	ResultOK Result = iota
	ResultTransientError
	ResultPermanentError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultTransientError:
		return "transient_error"
	default:
		return "permanent_error"
	}
}

// Info describes a channel for diagnostics and the `webhook test` /
// `status` CLI surfaces.
type Info struct {
	Name    string
	Enabled bool
}

// Channel is implemented by each built-in notification backend (teams,
// slack, discord, email, webhook) per spec.md §4.7 "Channel set".
type Channel interface {
	Info() Info
	Configure(cfg map[string]any) error
	Send(ctx context.Context, event Event) (Result, error)
}
