// Package mention, zengin mesaj gövdelerindeki kullanıcı referanslarını çözer.
//
// Desteklenen işaretler:
//   - ProseMirror/TipTap JSON: {"type":"mention","attrs":{"id":"<userID>"}}
//   - TipTap HTML çıktısı: <span data-type="mention" data-id="<userID>">@ali</span>
//   - Düz metin: @username
//
// Extract saf bir fonksiyondur: DB'ye gitmez, yan etkisi yoktur. Kimin
// workspace üyesi olduğu bilgisi çağıran tarafından Directory ile verilir.
// Bilinmeyen kullanıcıya işaret eden veya bozuk işaretler sessizce atlanır.
//
// Çözüm workspace üyelerine göre yapılır; mesajın mentions listesi ve
// message_mentions kayıtları bunu yansıtır. Kimin bildirim alacağı ayrı bir
// karardır: private kanalda MessageService bildirimi kanal üyeleriyle
// sınırlar. Bu paket o kuralı bilmez.
//
// Sıra ilk görülme sırasıdır ve tekrarlar atılır: "@ali @veli @ali" için
// [ali, veli]. JSON gövdede belge sırası, HTML/düz metinde metin sırası
// geçerlidir.
package mention

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/akinalp/ajans/models"
)

// Directory, mention hedeflerinin çözüldüğü üye rehberi.
type Directory interface {
	// HasID, verilen ID bir üyeye aitse true döner.
	HasID(userID string) bool
	// LookupUsername, username'e (büyük/küçük harf duyarsız) karşılık gelen ID'yi döner.
	LookupUsername(username string) (string, bool)
}

// MapDirectory, bellekteki üye listesinden oluşturulan Directory.
type MapDirectory struct {
	ids       map[string]bool
	usernames map[string]string
}

// NewDirectory, kullanıcı listesinden rehber oluşturur.
func NewDirectory(users []models.User) *MapDirectory {
	d := &MapDirectory{
		ids:       make(map[string]bool, len(users)),
		usernames: make(map[string]string, len(users)),
	}
	for _, u := range users {
		d.ids[u.ID] = true
		if u.Username != "" {
			d.usernames[strings.ToLower(u.Username)] = u.ID
		}
	}
	return d
}

// HasID implements Directory.
func (d *MapDirectory) HasID(userID string) bool {
	return d.ids[userID]
}

// LookupUsername implements Directory.
func (d *MapDirectory) LookupUsername(username string) (string, bool) {
	id, ok := d.usernames[strings.ToLower(username)]
	return id, ok
}

var (
	// usernameRegex, @username kalıbı. Username alfabesi nokta ve tire de
	// içerir: "@ali.veli" tek bir username'dir, "ali" olarak çözülmez.
	// Öncesindeki karakter ayrıca kontrol edilir: "bob@example.com" içindeki
	// "@example" mention sayılmaz.
	usernameRegex = regexp.MustCompile(`@(\w[\w.-]*)`)

	// htmlMentionRegex, mention span'ini içeriğiyle birlikte yakalar; içteki
	// "@label" metni ikinci kez düz metin olarak taranmaz.
	htmlMentionRegex = regexp.MustCompile(`(?is)<span\b([^>]*\bdata-type\s*=\s*["']mention["'][^>]*)>.*?</span>`)

	dataIDRegex = regexp.MustCompile(`(?i)\bdata-id\s*=\s*["']([^"']*)["']`)
)

// Extract, gövdedeki mention hedeflerini ilk görülme sırasıyla, tekrarsız döner.
// Hiç mention yoksa boş (nil olmayan) slice döner.
//
// Gövde "{" veya "[" ile başlıyorsa önce ProseMirror JSON olarak çözülür;
// JSON geçersizse aynı gövde HTML/düz metin olarak taranır. Bu sayede
// "{not: @ali}" gibi süslü parantezle başlayan düz metin de çalışır.
func Extract(body string, dir Directory) []string {
	c := &collector{dir: dir, seen: make(map[string]bool), ids: []string{}}

	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var doc any
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			c.walkNode(doc)
			return c.ids
		}
		// JSON değilse HTML/düz metin olarak taranır.
	}

	c.scanMarkup(body)
	return c.ids
}

type collector struct {
	dir  Directory
	seen map[string]bool
	ids  []string
}

func (c *collector) addID(id string) {
	id = strings.TrimSpace(id)
	if id == "" || c.seen[id] || !c.dir.HasID(id) {
		return
	}
	c.seen[id] = true
	c.ids = append(c.ids, id)
}

func (c *collector) addUsername(username string) {
	if id, ok := c.dir.LookupUsername(username); ok {
		c.addID(id)
	}
}

// walkNode, ProseMirror node ağacını belge sırasıyla gezer.
func (c *collector) walkNode(node any) {
	switch n := node.(type) {
	case []any:
		for _, child := range n {
			c.walkNode(child)
		}
	case map[string]any:
		nodeType, _ := n["type"].(string)
		switch nodeType {
		case "mention":
			attrs, ok := n["attrs"].(map[string]any)
			if !ok {
				return
			}
			if id, ok := attrs["id"].(string); ok {
				c.addID(id)
			}
			return
		case "text":
			if text, ok := n["text"].(string); ok {
				c.scanPlain(text)
			}
			return
		}
		if content, ok := n["content"]; ok {
			c.walkNode(content)
		}
	}
}

// scanMarkup, HTML mention span'lerini ve aradaki düz metni sırayla işler.
func (c *collector) scanMarkup(body string) {
	last := 0
	for _, loc := range htmlMentionRegex.FindAllStringSubmatchIndex(body, -1) {
		c.scanPlain(body[last:loc[0]])

		tagAttrs := body[loc[2]:loc[3]]
		if m := dataIDRegex.FindStringSubmatch(tagAttrs); m != nil {
			c.addID(m[1])
		}
		last = loc[1]
	}
	c.scanPlain(body[last:])
}

// scanPlain, düz metindeki @username kalıplarını çözer.
func (c *collector) scanPlain(text string) {
	for _, loc := range usernameRegex.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > 0 && isWordByte(text[loc[0]-1]) {
			continue
		}
		// Cümle sonu noktalama username'e dahil değil: "teşekkürler @ali."
		username := strings.TrimRight(text[loc[2]:loc[3]], ".-")
		c.addUsername(username)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' || b == '-' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
