package fake

import (
	"fmt"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
)

// DemoUser owns the seeded demo playlists.
const DemoUser = "demo-user"

type song struct {
	title    string
	artist   string
	album    string
	duration int
}

var demoSongs = []song{
	{"Bohemian Rhapsody", "Queen", "A Night at the Opera", 354},
	{"Blinding Lights", "The Weeknd", "After Hours", 200},
	{"Levitating", "Dua Lipa", "Future Nostalgia", 203},
	{"Take On Me", "a-ha", "Hunting High and Low", 225},
	{"Dreams", "Fleetwood Mac", "Rumours", 257},
	{"Redbone", "Childish Gambino", "Awaken, My Love!", 327},
	{"Midnight City", "M83", "Hurry Up, We're Dreaming", 243},
	{"Electric Feel", "MGMT", "Oracular Spectacular", 229},
	{"Get Lucky", "Daft Punk", "Random Access Memories", 369},
	{"Sweet Disposition", "The Temper Trap", "Conditions", 234},
	{"Budapest", "George Ezra", "Wanted on Voyage", 200},
	{"Riptide", "Vance Joy", "Dream Your Life Away", 204},
	{"Tame", "Pixies", "Doolittle", 115},
	{"Stronger", "Kanye West", "Graduation", 312},
	{"Lose Yourself", "Eminem", "8 Mile", 326},
	{"Eye of the Tiger", "Survivor", "Eye of the Tiger", 245},
	{"Till I Collapse", "Eminem", "The Eminem Show", 297},
	{"Can't Hold Us", "Macklemore & Ryan Lewis", "The Heist", 258},
	{"Titanium", "David Guetta", "Nothing but the Beat", 245},
	{"Power", "Kanye West", "My Beautiful Dark Twisted Fantasy", 292},
	{"Intro", "The xx", "xx", 128},
	{"Teardrop", "Massive Attack", "Mezzanine", 330},
	{"Weightless", "Marconi Union", "Weightless", 480},
	{"Clair de Lune", "Claude Debussy", "Suite bergamasque", 300},
	{"Experience", "Ludovico Einaudi", "In a Time Lapse", 315},
	{"Nuvole Bianche", "Ludovico Einaudi", "Una Mattina", 357},
	{"Gymnopedie No. 1", "Erik Satie", "Gymnopedies", 185},
	{"Time", "Hans Zimmer", "Inception", 275},
	{"Avril 14th", "Aphex Twin", "Drukqs", 125},
	{"Holocene", "Bon Iver", "Bon Iver", 337},
	{"Summer", "Calvin Harris", "Motion", 223},
	{"Good Vibrations", "The Beach Boys", "Smiley Smile", 219},
	{"Walking on Sunshine", "Katrina and the Waves", "Walking on Sunshine", 239},
	{"Life Is a Highway", "Tom Cochrane", "Mad Mad World", 266},
	{"Born to Run", "Bruce Springsteen", "Born to Run", 270},
	{"Take Me Home, Country Roads", "John Denver", "Poems, Prayers & Promises", 190},
	{"So What", "Miles Davis", "Kind of Blue", 562},
	{"Take Five", "The Dave Brubeck Quartet", "Time Out", 324},
	{"My Favorite Things", "John Coltrane", "My Favorite Things", 826},
	{"Feeling Good", "Nina Simone", "I Put a Spell on You", 177},
}

type demoPlaylist struct {
	id     string
	name   string
	offset int
	count  int
}

var (
	spotifyDemo = []demoPlaylist{
		{"sp1", "Chill Vibes", 0, 24},
		{"sp2", "Workout Mix", 12, 18},
		{"sp3", "Focus Flow", 8, 32},
	}
	youtubeDemo = []demoPlaylist{
		{"yt1", "Summer Hits", 30, 15},
		{"yt2", "Road Trip", 5, 28},
		{"yt3", "Evening Jazz", 34, 12},
	}
)

// Demo returns a Spotify and a YouTube catalog seeded with the demo
// playlists. Every song is searchable on both sides, with YouTube carrying
// video-style titles and channel names.
func Demo() (spotify, youtube *Catalog) {
	spotify = NewCatalog(domain.PlatformSpotify)
	youtube = NewCatalog(domain.PlatformYouTube)

	spTracks := make([]domain.Track, len(demoSongs))
	ytTracks := make([]domain.Track, len(demoSongs))
	for i, s := range demoSongs {
		spTracks[i] = domain.Track{
			Title:           s.title,
			Artist:          s.artist,
			Album:           s.album,
			DurationSeconds: s.duration,
			PlatformID:      fmt.Sprintf("sp-song-%02d", i+1),
		}
		ytTracks[i] = domain.Track{
			Title:           s.title + " (Official Video)",
			Artist:          s.artist + " - Topic",
			DurationSeconds: s.duration + 2,
			PlatformID:      fmt.Sprintf("yt-song-%02d", i+1),
		}
	}
	spotify.AddCatalogTracks(spTracks...)
	youtube.AddCatalogTracks(ytTracks...)

	seed(spotify, spotifyDemo, spTracks)
	seed(youtube, youtubeDemo, ytTracks)
	return spotify, youtube
}

func seed(c *Catalog, lists []demoPlaylist, tracks []domain.Track) {
	for _, pl := range lists {
		items := make([]domain.Track, pl.count)
		for i := range items {
			items[i] = tracks[(pl.offset+i)%len(tracks)]
		}
		c.AddPlaylist(DemoUser, domain.PlaylistRef{ID: pl.id, DisplayName: pl.name}, items)
	}
}
