// Package geoplot maps gridded data and shapefile features onto regular
// grids and renders them as colormapped images. It provides grid coordinate
// transforms, level-based color normalization, shapefile reading with a
// local reprojection cache, and optional S3 sample fetching, a Postgres
// feature catalog, and Mapbox vector tile export.
package geoplot
