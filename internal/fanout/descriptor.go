package fanout

import (
	"fmt"
	"sort"

	"github.com/kashsbd/awlam-backend/internal/models"
)

// Descriptor parameterizes the engine for one content type.
type Descriptor struct {
	// TypeName is the lower-case name used in routes and counter events.
	TypeName string
	// Collection is the MongoDB collection holding the items.
	Collection string
	// KindTag is appended to notification actions (LIKE-<KindTag>) and stored
	// as the comment type.
	KindTag string
	// Noun is how push bodies refer to the item.
	Noun string
	// MediaType labels uploaded media of this type.
	MediaType string
	// MediaURL builds the public URL of a media item for push images.
	MediaURL func(serverURL string, media *models.MediaSummary) string
	// SearchFields are the fields matched by full-text search.
	SearchFields []string

	// Parent is set for sub-post types. Notifications of a sub-post point at
	// the parent item.
	Parent *Descriptor
	// Sub is the sub-post type of a top-level type, if any.
	Sub *Descriptor

	NotifyOnDislike  bool
	RequiresApproval bool
}

// CounterEvent names a counter event of this type, e.g. "citizen::reacted".
func (d *Descriptor) CounterEvent(event string) string {
	return d.TypeName + "::" + event
}

// Kind returns the notification kind for action, e.g. "COMMENT-SUBTOPIC".
func (d *Descriptor) Kind(action string) string {
	return models.NotificationKind(action, d.KindTag)
}

func (d *Descriptor) IsSub() bool {
	return d.Parent != nil
}

// DataID is the id notifications about item refer to: the parent id for
// sub-posts, the item id otherwise.
func (d *Descriptor) DataID(item *models.ContentItem) string {
	if d.IsSub() && item.IsSubPost() {
		return item.PostOwner.Hex()
	}
	return item.ID.Hex()
}

// mediaURLBuilder serves photos at <route>/media/<id> and videos through
// their thumbnail.
func mediaURLBuilder(route string) func(string, *models.MediaSummary) string {
	return func(serverURL string, media *models.MediaSummary) string {
		if media == nil {
			return ""
		}
		url := serverURL + route + "/media/" + media.ID.Hex()
		if media.IsVideo() {
			url += "/thumbnail"
		}
		return url
	}
}

var (
	Post = &Descriptor{
		TypeName:     "post",
		Collection:   "posts",
		KindTag:      "POST",
		Noun:         "post",
		MediaType:    "POST",
		MediaURL:     mediaURLBuilder("posts"),
		SearchFields: []string{"status", "hashTags"},
	}

	Citizen = &Descriptor{
		TypeName:         "citizen",
		Collection:       "citizens",
		KindTag:          "CITIZEN",
		Noun:             "citizen post",
		MediaType:        "CITIZEN",
		MediaURL:         mediaURLBuilder("citizens"),
		SearchFields:     []string{"description", "location.name"},
		RequiresApproval: true,
	}

	SubCitizen = &Descriptor{
		TypeName:   "subcitizen",
		Collection: "citizenposts",
		KindTag:    "SUBCITIZEN",
		Noun:       "citizen post",
		MediaType:  "CITIZEN-SUBPOST",
		MediaURL:   mediaURLBuilder("citizens"),
	}

	Topic = &Descriptor{
		TypeName:     "topic",
		Collection:   "topics",
		KindTag:      "TOPIC",
		Noun:         "topic post",
		MediaType:    "TOPIC",
		MediaURL:     mediaURLBuilder("topics"),
		SearchFields: []string{"description"},
	}

	SubTopic = &Descriptor{
		TypeName:   "subtopic",
		Collection: "topicposts",
		KindTag:    "SUBTOPIC",
		Noun:       "topic post",
		MediaType:  "TOPIC-SUBPOST",
		MediaURL:   mediaURLBuilder("topics"),
	}

	Event = &Descriptor{
		TypeName:     "event",
		Collection:   "events",
		KindTag:      "EVENT",
		Noun:         "event post",
		MediaType:    "EVENT",
		MediaURL:     mediaURLBuilder("events"),
		SearchFields: []string{"event_name", "description"},
	}

	SubEvent = &Descriptor{
		TypeName:   "subevent",
		Collection: "eventposts",
		KindTag:    "SUBEVENT",
		Noun:       "event post",
		MediaType:  "EVENT-SUBPOST",
		MediaURL:   mediaURLBuilder("events"),
	}

	Government = &Descriptor{
		TypeName:     "government",
		Collection:   "governments",
		KindTag:      "GOVERNMENT",
		Noun:         "post",
		MediaType:    "GOVERNMENT",
		MediaURL:     mediaURLBuilder("governments"),
		SearchFields: []string{"status", "hashTags"},
	}
)

func init() {
	link(Citizen, SubCitizen)
	link(Topic, SubTopic)
	link(Event, SubEvent)
}

func link(parent, sub *Descriptor) {
	parent.Sub = sub
	sub.Parent = parent
}

var registry = map[string]*Descriptor{
	Post.TypeName:       Post,
	Citizen.TypeName:    Citizen,
	SubCitizen.TypeName: SubCitizen,
	Topic.TypeName:      Topic,
	SubTopic.TypeName:   SubTopic,
	Event.TypeName:      Event,
	SubEvent.TypeName:   SubEvent,
	Government.TypeName: Government,
}

// Lookup returns the descriptor registered for typeName.
func Lookup(typeName string) (*Descriptor, error) {
	d, ok := registry[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown content type %q", typeName)
	}
	return d, nil
}

// TopLevel returns the top-level descriptors sorted by name.
func TopLevel() []*Descriptor {
	out := make([]*Descriptor, 0, len(registry))
	for _, d := range registry {
		if !d.IsSub() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}
