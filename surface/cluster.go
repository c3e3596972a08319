package surface

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/fieldops/fleettrack/gps"
)

const (
	clusterTolerance   = 0.0001
	clusterMinChildren = 2
	clusterMaxChildren = 25
)

// Cluster is a zoom-dependent grouping of nearby site markers. Purely a
// rendering artifact; it exists only inside the native surface's layer state.
type Cluster struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Count     int      `json:"count"`
	SiteIDs   []string `json:"site_ids"`
}

type siteItem struct {
	site gps.Site
	rect *rtreego.Rect
}

func (si *siteItem) Bounds() *rtreego.Rect { return si.rect }

// metersPerPixel is the web-mercator ground resolution at a latitude and zoom.
func metersPerPixel(lat, zoom float64) float64 {
	return 156543.03392 * math.Cos(lat*math.Pi/180) / math.Pow(2, zoom)
}

// siteIndex is an R-tree over sites with coordinates, shared by the cluster
// pass and the nearest-site lookup.
type siteIndex struct {
	tree  *rtreego.Rtree
	items []*siteItem
}

func newSiteIndex(sites []gps.Site) *siteIndex {
	idx := &siteIndex{tree: rtreego.NewTree(2, clusterMinChildren, clusterMaxChildren)}
	for _, s := range sites {
		if !s.HasCoordinates() {
			continue
		}
		if gps.ValidateCoordinates(*s.Latitude, *s.Longitude) != nil {
			continue
		}
		pt := rtreego.Point{*s.Latitude, *s.Longitude}
		item := &siteItem{site: s, rect: pt.ToRect(clusterTolerance)}
		idx.items = append(idx.items, item)
		idx.tree.Insert(item)
	}
	return idx
}

// nearest returns the site closest to the coordinate, or nil for an empty
// index.
func (idx *siteIndex) nearest(lat, lon float64) *gps.Site {
	if len(idx.items) == 0 {
		return nil
	}
	found := idx.tree.NearestNeighbors(1, rtreego.Point{lat, lon})
	if len(found) == 0 {
		return nil
	}
	item, ok := found[0].(*siteItem)
	if !ok {
		return nil
	}
	site := item.site
	return &site
}

// within returns items inside radiusMeters of the coordinate: an R-tree
// bounding-box pass refined by great-circle distance.
func (idx *siteIndex) within(lat, lon, radiusMeters float64) []*siteItem {
	latDelta := radiusMeters / 111320.0
	lonDelta := latDelta
	if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 0.01 {
		lonDelta = latDelta / cosLat
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{lat - latDelta, lon - lonDelta},
		[]float64{2 * latDelta, 2 * lonDelta},
	)
	if err != nil {
		return nil
	}
	center := orb.Point{lon, lat}
	var hits []*siteItem
	for _, spatial := range idx.tree.SearchIntersect(rect) {
		item, ok := spatial.(*siteItem)
		if !ok {
			continue
		}
		pt := orb.Point{*item.site.Longitude, *item.site.Latitude}
		if geo.DistanceHaversine(center, pt) <= radiusMeters {
			hits = append(hits, item)
		}
	}
	return hits
}

// clusterSites greedily groups sites whose markers would overlap at the given
// zoom: the pixel radius is converted to ground meters at each seed site's
// latitude. Above maxZoom every site stands alone.
func clusterSites(sites []gps.Site, zoom float64, radiusPX int, maxZoom float64) []Cluster {
	idx := newSiteIndex(sites)
	if zoom > maxZoom || radiusPX <= 0 {
		clusters := make([]Cluster, 0, len(idx.items))
		for _, item := range idx.items {
			clusters = append(clusters, Cluster{
				Latitude:  *item.site.Latitude,
				Longitude: *item.site.Longitude,
				Count:     1,
				SiteIDs:   []string{item.site.ID},
			})
		}
		return clusters
	}

	visited := map[string]bool{}
	var clusters []Cluster
	for _, seed := range idx.items {
		if visited[seed.site.ID] {
			continue
		}
		radiusM := float64(radiusPX) * metersPerPixel(*seed.site.Latitude, zoom)
		members := idx.within(*seed.site.Latitude, *seed.site.Longitude, radiusM)

		cluster := Cluster{}
		sumLat, sumLon := 0.0, 0.0
		for _, m := range members {
			if visited[m.site.ID] {
				continue
			}
			visited[m.site.ID] = true
			cluster.Count++
			cluster.SiteIDs = append(cluster.SiteIDs, m.site.ID)
			sumLat += *m.site.Latitude
			sumLon += *m.site.Longitude
		}
		if cluster.Count == 0 {
			continue
		}
		cluster.Latitude = sumLat / float64(cluster.Count)
		cluster.Longitude = sumLon / float64(cluster.Count)
		clusters = append(clusters, cluster)
	}
	return clusters
}
