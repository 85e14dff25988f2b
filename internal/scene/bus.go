package scene

import (
	"fmt"
	"sort"

	"animterm/internal/shape"
)

// Model names one observable aggregate of the scene.
type Model int

const (
	AllShapes Model = iota
	DisplayShapes
	TimelineEvents
	Tweens
	Clock
)

var Models = []Model{AllShapes, DisplayShapes, TimelineEvents, Tweens, Clock}

func (m Model) String() string {
	switch m {
	case AllShapes:
		return "allShapes"
	case DisplayShapes:
		return "displayShapes"
	case TimelineEvents:
		return "timelineEvents"
	case Tweens:
		return "tweens"
	case Clock:
		return "clock"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// Notification is the net change to one model over a batch. A Reset carries
// the whole model in Added. Items are shape.Shape, *timeline.Event or
// *tween.Tween depending on the model; Clock carries no items.
type Notification struct {
	Model   Model
	Reset   bool
	Added   []any
	Removed []any
	Updated []any
	Clock   float64
}

func (n Notification) Empty() bool {
	return !n.Reset && len(n.Added) == 0 && len(n.Removed) == 0 && len(n.Updated) == 0
}

type Subscriber interface {
	Notify(Notification)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Notification)

func (f SubscriberFunc) Notify(n Notification) { f(n) }

// Subscription identifies one Subscribe call.
type Subscription struct {
	model Model
	id    int
}

type delivery struct {
	sub Subscriber
	n   Notification
}

// Subscribe registers sub for model and sends it a Reset of the model's
// current state before returning.
func (c *Controller) Subscribe(model Model, sub Subscriber) Subscription {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if c.subs[model] == nil {
		c.subs[model] = make(map[int]Subscriber)
	}
	c.subs[model][id] = sub
	n := c.resetNotification(model)
	c.mu.Unlock()

	c.deliver([]delivery{{sub: sub, n: n}})
	return Subscription{model: model, id: id}
}

func (c *Controller) Unsubscribe(s Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs[s.model], s.id)
}

// deliver runs outside the mutex so subscribers may read the scene. A
// subscriber that panics is logged and the rest are still notified.
func (c *Controller) deliver(pending []delivery) {
	for _, d := range pending {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("subscriber failed", "model", d.n.Model, "panic", r)
				}
			}()
			d.sub.Notify(d.n)
		}()
	}
}

// fanOut pairs each notification with the subscribers of its model, in
// subscription order.
func (c *Controller) fanOut(ns []Notification) []delivery {
	var out []delivery
	for _, n := range ns {
		subs := c.subs[n.Model]
		ids := make([]int, 0, len(subs))
		for id := range subs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			out = append(out, delivery{sub: subs[id], n: n})
		}
	}
	return out
}

func (c *Controller) resetNotification(model Model) Notification {
	n := Notification{Model: model, Reset: true, Clock: c.clock}
	switch model {
	case AllShapes:
		n.Added = shapesToAny(zOrdered(c.live))
	case DisplayShapes:
		n.Added = shapesToAny(zOrdered(c.display))
	case TimelineEvents:
		for _, e := range c.events.Events() {
			n.Added = append(n.Added, e)
		}
	case Tweens:
		for _, tw := range c.sortedTweens() {
			n.Added = append(n.Added, tw)
		}
	}
	return n
}

func (c *Controller) resetAll() []delivery {
	ns := make([]Notification, 0, len(Models))
	for _, m := range Models {
		ns = append(ns, c.resetNotification(m))
	}
	return c.fanOut(ns)
}

func shapesToAny(shapes []shape.Shape) []any {
	out := make([]any, len(shapes))
	for i, s := range shapes {
		out[i] = s
	}
	return out
}
