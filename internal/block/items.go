package block

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoCollection is returned when a block type does not carry the
// requested collection.
var ErrNoCollection = errors.New("block has no such collection")

// Collection names a nested, ordered item list carried inside a block's
// settings. Items are addressable by (blockID, itemID) but are not tree
// children and never have children of their own.
type Collection string

const (
	CollectionNavLinks    Collection = "nav_links"
	CollectionFooterLinks Collection = "footer_links"
	CollectionSocialLinks Collection = "social_links"
	CollectionFormFields  Collection = "form_fields"
	CollectionOptions     Collection = "options"
	CollectionPosts       Collection = "posts"
	CollectionGridLinks   Collection = "grid_links"
	CollectionProducts    Collection = "products"
)

// Collections lists every collection kind.
var Collections = []Collection{
	CollectionNavLinks, CollectionFooterLinks, CollectionSocialLinks, CollectionFormFields,
	CollectionOptions, CollectionPosts, CollectionGridLinks, CollectionProducts,
}

type NavLink struct {
	ID     string `json:"id"`
	Label  string `json:"label,omitempty"`
	URL    string `json:"url,omitempty"`
	NewTab bool   `json:"new_tab,omitempty"`
}

type FooterLink struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	URL   string `json:"url,omitempty"`
}

type SocialLink struct {
	ID       string `json:"id"`
	Platform string `json:"platform,omitempty"`
	URL      string `json:"url,omitempty"`
}

type FormField struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Option is a choice of a select, radio or checkbox field.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

type PostItem struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Image   string `json:"image,omitempty"`
	URL     string `json:"url,omitempty"`
	Date    string `json:"date,omitempty"`
}

type LinkItem struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

type ProductItem struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Price string `json:"price,omitempty"`
	Image string `json:"image,omitempty"`
	URL   string `json:"url,omitempty"`
}

func (i *NavLink) itemID() string     { return i.ID }
func (i *FooterLink) itemID() string  { return i.ID }
func (i *SocialLink) itemID() string  { return i.ID }
func (i *FormField) itemID() string   { return i.ID }
func (i *Option) itemID() string      { return i.ID }
func (i *PostItem) itemID() string    { return i.ID }
func (i *LinkItem) itemID() string    { return i.ID }
func (i *ProductItem) itemID() string { return i.ID }

func (i *NavLink) setItemID(id string)     { i.ID = id }
func (i *FooterLink) setItemID(id string)  { i.ID = id }
func (i *SocialLink) setItemID(id string)  { i.ID = id }
func (i *FormField) setItemID(id string)   { i.ID = id }
func (i *Option) setItemID(id string)      { i.ID = id }
func (i *PostItem) setItemID(id string)    { i.ID = id }
func (i *LinkItem) setItemID(id string)    { i.ID = id }
func (i *ProductItem) setItemID(id string) { i.ID = id }

type itemPtr[T any] interface {
	*T
	itemID() string
	setItemID(string)
}

// itemList is a type-erased view over one collection slice.
type itemList interface {
	len() int
	id(i int) string
	setID(i int, id string)
	index(id string) int
	get(i int) any
	insert(i int, fields map[string]any) error
	update(i int, patch map[string]any) error
	remove(i int)
	move(from, to int) bool
}

type typedList[T any, P itemPtr[T]] struct {
	items *[]T
	// fix adjusts an updated item given its previous state.
	fix func(prev, next *T)
}

func (l typedList[T, P]) len() int               { return len(*l.items) }
func (l typedList[T, P]) id(i int) string        { return P(&(*l.items)[i]).itemID() }
func (l typedList[T, P]) setID(i int, id string) { P(&(*l.items)[i]).setItemID(id) }
func (l typedList[T, P]) get(i int) any          { return (*l.items)[i] }

func (l typedList[T, P]) index(id string) int {
	for i := range *l.items {
		if P(&(*l.items)[i]).itemID() == id {
			return i
		}
	}
	return -1
}

func (l typedList[T, P]) insert(i int, fields map[string]any) error {
	var item T
	if err := decodeItem(fields, &item); err != nil {
		return err
	}
	if l.fix != nil {
		var prev T
		l.fix(&prev, &item)
	}
	*l.items = Insert(*l.items, i, item)
	return nil
}

func (l typedList[T, P]) update(i int, patch map[string]any) error {
	prev := (*l.items)[i]
	data, err := json.Marshal(prev)
	if err != nil {
		return err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	var next T
	if err := decodeItem(m, &next); err != nil {
		return err
	}
	if l.fix != nil {
		l.fix(&prev, &next)
	}
	(*l.items)[i] = next
	return nil
}

func (l typedList[T, P]) remove(i int) {
	*l.items = Remove(*l.items, i)
}

func (l typedList[T, P]) move(from, to int) bool {
	return Move(*l.items, from, to)
}

func decodeItem(fields map[string]any, dst any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func list[T any, P itemPtr[T]](items *[]T) itemList {
	return typedList[T, P]{items: items}
}

func optionList(items *[]Option) itemList {
	return typedList[Option, *Option]{items: items, fix: fixOptionValue}
}

// lists returns every collection s carries, keyed by kind.
func lists(s Settings) map[Collection]itemList {
	switch s := s.(type) {
	case *HeaderSettings:
		return map[Collection]itemList{CollectionNavLinks: list[NavLink](&s.NavLinks)}
	case *FooterSettings:
		return map[Collection]itemList{
			CollectionFooterLinks: list[FooterLink](&s.Links),
			CollectionSocialLinks: list[SocialLink](&s.SocialLinks),
		}
	case *FormSettings:
		return map[Collection]itemList{CollectionFormFields: list[FormField](&s.Fields)}
	case *FormSelectSettings:
		return map[Collection]itemList{CollectionOptions: optionList(&s.Options)}
	case *FormRadioSettings:
		return map[Collection]itemList{CollectionOptions: optionList(&s.Options)}
	case *FormCheckboxSettings:
		return map[Collection]itemList{CollectionOptions: optionList(&s.Options)}
	case *GridSettings:
		return map[Collection]itemList{
			CollectionPosts:     list[PostItem](&s.Posts),
			CollectionGridLinks: list[LinkItem](&s.Links),
			CollectionProducts:  list[ProductItem](&s.Products),
		}
	}
	return nil
}

// collectionKeys maps a type to the JSON keys of its collections.
var collectionKeys = map[Type][]string{
	TypeHeader:       {"nav_links"},
	TypeFooter:       {"links", "social_links"},
	TypeForm:         {"fields"},
	TypeFormSelect:   {"options"},
	TypeFormRadio:    {"options"},
	TypeFormCheckbox: {"options"},
	TypeGrid:         {"posts", "links", "products"},
}

func isCollectionKey(t Type, key string) bool {
	for _, k := range collectionKeys[t] {
		if k == key {
			return true
		}
	}
	return false
}

// Supports reports whether blocks of type t carry collection c.
func Supports(t Type, c Collection) bool {
	s, err := zero(t)
	if err != nil {
		return false
	}
	_, ok := lists(s)[c]
	return ok
}

// Items returns a copy of the items of collection c in s.
func Items(s Settings, c Collection) ([]any, bool) {
	l, ok := lists(s)[c]
	if !ok {
		return nil, false
	}
	out := make([]any, l.len())
	for i := range out {
		out[i] = l.get(i)
	}
	return out, true
}

// ItemIDs returns the ids of every item in every collection of s.
func ItemIDs(s Settings) []string {
	var ids []string
	for _, c := range Collections {
		ids = append(ids, CollectionIDs(s, c)...)
	}
	return ids
}

// CollectionIDs returns the item ids of collection c in s, in order.
func CollectionIDs(s Settings, c Collection) []string {
	l, ok := lists(s)[c]
	if !ok {
		return nil
	}
	ids := make([]string, l.len())
	for i := range ids {
		ids[i] = l.id(i)
	}
	return ids
}

// ItemIndex returns the position of itemID within collection c of s, or -1.
func ItemIndex(s Settings, c Collection, itemID string) int {
	l, ok := lists(s)[c]
	if !ok {
		return -1
	}
	return l.index(itemID)
}

// ItemCount returns the number of items in collection c of s.
func ItemCount(s Settings, c Collection) int {
	l, ok := lists(s)[c]
	if !ok {
		return 0
	}
	return l.len()
}

// AddItem inserts an item decoded from fields at index (appending when index
// is out of range) and gives it id.
func AddItem(s Settings, c Collection, index int, id string, fields map[string]any) error {
	l, ok := lists(s)[c]
	if !ok {
		return ErrNoCollection
	}
	if index < 0 || index > l.len() {
		index = l.len()
	}
	if err := l.insert(index, fields); err != nil {
		return err
	}
	l.setID(index, id)
	return nil
}

// UpdateItem merges patch into the item with itemID. The id is immutable.
func UpdateItem(s Settings, c Collection, itemID string, patch map[string]any) (bool, error) {
	l, ok := lists(s)[c]
	if !ok {
		return false, nil
	}
	i := l.index(itemID)
	if i < 0 {
		return false, nil
	}
	return true, l.update(i, patch)
}

// DeleteItem removes the item with itemID.
func DeleteItem(s Settings, c Collection, itemID string) bool {
	l, ok := lists(s)[c]
	if !ok {
		return false
	}
	i := l.index(itemID)
	if i < 0 {
		return false
	}
	l.remove(i)
	return true
}

// MoveItem moves an item with move-and-shift semantics.
func MoveItem(s Settings, c Collection, from, to int) bool {
	l, ok := lists(s)[c]
	if !ok {
		return false
	}
	return l.move(from, to)
}

// RegenerateItems gives every item in s a fresh id.
func RegenerateItems(s Settings, newID func() string) {
	for _, l := range lists(s) {
		for i := 0; i < l.len(); i++ {
			l.setID(i, newID())
		}
	}
}

// FillItemIDs assigns ids to items that have none.
func FillItemIDs(s Settings, newID func() string) {
	for _, l := range lists(s) {
		for i := 0; i < l.len(); i++ {
			if l.id(i) == "" {
				l.setID(i, newID())
			}
		}
	}
}

func regenerateItems(s Settings, newID func() string) {
	if s != nil {
		RegenerateItems(s, newID)
	}
}

// fixOptionValue keeps an option's machine value derived from its label
// until the value is set to something else. A value that is empty or still
// equal to the slug of the previous label follows the new label.
func fixOptionValue(prev, next *Option) {
	if next.Value == "" || (next.Value == prev.Value && prev.Value == Slugify(prev.Label)) {
		next.Value = Slugify(next.Label)
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a label to a lowercase, dash separated machine value.
func Slugify(label string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(label), "-")
	return strings.Trim(s, "-")
}
