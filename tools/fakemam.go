package main

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// A small standalone MyAnonamouse stand-in for local development. It answers
// the JSON search endpoint and serves syntactically valid .torrent files, so
// the full service can be exercised without tracker credentials.

var adjectives = []string{"Silent", "Burning", "Forgotten", "Endless", "Hidden", "Scarlet", "Broken"}
var nouns = []string{"Empire", "Garden", "Voyage", "Cipher", "Harbor", "Winter", "Archive"}
var authors = []string{"A. Merchant", "E. Castellan", "J. Holloway", "M. Reyes", "S. Winterbourne"}

func main() {
	http.HandleFunc("/tor/js/loadSearchJSONbasic.php", searchHandler)
	http.HandleFunc("/torrents.php", downloadHandler)

	fmt.Println("Fake MyAnonamouse server starting on :8088")
	fmt.Println("Point tracker.base_url at http://localhost:8088 and use any session id.")
	log.Fatal(http.ListenAndServe(":8088", nil))
}

func searchHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie("mam_id"); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	query := r.URL.Query().Get("tor[text]")
	perpage, _ := strconv.Atoi(r.URL.Query().Get("perpage"))
	if perpage <= 0 || perpage > 100 {
		perpage = 10
	}

	rng := rand.New(rand.NewSource(int64(len(query)) + 7))
	results := make([]map[string]interface{}, 0, perpage)
	for i := 0; i < perpage; i++ {
		id := 100000 + rng.Intn(900000)
		title := fmt.Sprintf("The %s %s", adjectives[rng.Intn(len(adjectives))], nouns[rng.Intn(len(nouns))])
		if query != "" {
			title = strings.ToUpper(query[:1]) + query[1:] + ": " + title
		}
		results = append(results, map[string]interface{}{
			"id":                 id,
			"title":              title,
			"author_info":        fmt.Sprintf(`{"%d":"%s"}`, rng.Intn(10000), authors[rng.Intn(len(authors))]),
			"size":               1 << (25 + rng.Intn(6)),
			"seeders":            rng.Intn(80),
			"leechers":           rng.Intn(10),
			"added":              time.Now().Add(-time.Duration(rng.Intn(720)) * time.Hour).UTC().Format("2006-01-02 15:04:05"),
			"personal_freeleech": rng.Intn(4) == 0,
			"minimumSeedTime":    259200,
			"main_cat":           13,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  results,
		"found": len(results),
	})
}

// downloadHandler serves a minimal single-file torrent whose info dict is
// derived from the id, so repeated fetches of the same id hash identically.
func downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") != "download" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, err := r.Cookie("mam_id"); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	name := "audiobook_" + id
	pieces := sha1.Sum([]byte(id))
	info := fmt.Sprintf("d6:lengthi1024e4:name%d:%s12:piece lengthi16384e6:pieces20:%se",
		len(name), name, string(pieces[:]))
	announce := "http://localhost:8088/announce/" + announceToken(id)
	torrent := fmt.Sprintf("d8:announce%d:%s4:info%se", len(announce), announce, info)

	w.Header().Set("Content-Type", "application/x-bittorrent")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.torrent"`, name))
	fmt.Fprint(w, torrent)
}

func announceToken(id string) string {
	sum := sha1.Sum([]byte("announce:" + id))
	return hex.EncodeToString(sum[:4])
}
