/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package save

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type traced struct {
	next    Persister
	backend string
	tracer  trace.Tracer
}

// Traced wraps p so that every call is recorded as a span named
// "save.<op>" tagged with the backend name.
func Traced(p Persister, backend string) Persister {
	return &traced{next: p, backend: backend, tracer: otel.Tracer("gonovel/save")}
}

func (t *traced) start(ctx context.Context, op string, slot int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("save.backend", t.backend)}
	if slot >= 0 {
		attrs = append(attrs, attribute.Int("save.slot", slot))
	}
	return t.tracer.Start(ctx, "save."+op, trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *traced) Save(ctx context.Context, slot int, s Snapshot) (err error) {
	ctx, span := t.start(ctx, "save", slot)
	defer func() { end(span, err) }()
	span.SetAttributes(attribute.String("scenario.id", s.ScenarioID))
	return t.next.Save(ctx, slot, s)
}

func (t *traced) Load(ctx context.Context, slot int) (s Snapshot, found bool, err error) {
	ctx, span := t.start(ctx, "load", slot)
	defer func() {
		span.SetAttributes(attribute.Bool("save.found", found))
		end(span, err)
	}()
	return t.next.Load(ctx, slot)
}

func (t *traced) List(ctx context.Context) (out []Entry, err error) {
	ctx, span := t.start(ctx, "list", -1)
	defer func() {
		span.SetAttributes(attribute.Int("save.count", len(out)))
		end(span, err)
	}()
	return t.next.List(ctx)
}

func (t *traced) Delete(ctx context.Context, slot int) (err error) {
	ctx, span := t.start(ctx, "delete", slot)
	defer func() { end(span, err) }()
	return t.next.Delete(ctx, slot)
}

func (t *traced) Slots() int { return t.next.Slots() }
