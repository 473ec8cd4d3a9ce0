package catalog

import "github.com/mr1hm/orbitview/internal/models"

const (
	level8  = "GoogleMapsCompatible_Level8"
	level9  = "GoogleMapsCompatible_Level9"
	level12 = "GoogleMapsCompatible_Level12"
)

var defaultBaseLayers = []models.Layer{
	{
		ID:          "VIIRS_NOAA20_CorrectedReflectance_TrueColor",
		Name:        "True Color (VIIRS/NOAA-20)",
		Description: "Latest generation satellite. Highest quality daily imagery.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "VIIRS_SNPP_CorrectedReflectance_TrueColor",
		Name:        "True Color (VIIRS/Suomi NPP)",
		Description: "Standard high-res realistic view. Good for daily viewing.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Terra_CorrectedReflectance_TrueColor",
		Name:        "True Color (MODIS Terra)",
		Description: "Morning pass. Realistic view.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Aqua_CorrectedReflectance_TrueColor",
		Name:        "True Color (MODIS Aqua)",
		Description: "Afternoon pass. Realistic view.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "VIIRS_SNPP_DayNightBand_ENCC",
		Name:        "Night Lights (VIIRS)",
		Description: "Earth at Night. Shows city lights and nighttime activity (Grayscale).",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Terra_CorrectedReflectance_Bands721",
		Name:        "False Color 7-2-1 (Terra)",
		Description: "Vegetation is green, burn scars red, water black.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Aqua_CorrectedReflectance_Bands721",
		Name:        "False Color 7-2-1 (Aqua)",
		Description: "Afternoon False Color. Good for burn scars and floods.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Terra_CorrectedReflectance_Bands367",
		Name:        "False Color 3-6-7 (Snow/Ice)",
		Description: "Snow/Ice is red, Vegetation green, Clouds white. Good for poles.",
		Format:      models.FormatJPG,
		MatrixSet:   level9,
	},
	{
		ID:          "GHRSST_L4_MUR_Sea_Surface_Temperature",
		Name:        "Sea Surface Temperature",
		Description: "Global ocean temperature gradients (Colorized).",
		Format:      models.FormatPNG,
		MatrixSet:   level9,
	},
	{
		ID:            "ASTER_GDEM_Color_Shaded_Relief",
		Name:          "Elevation (ASTER GDEM)",
		Description:   "Global Digital Elevation Model. Static topographic map.",
		Format:        models.FormatJPG,
		MatrixSet:     level12,
		TimeParameter: "default",
		MaxZoom:       12,
	},
	{
		ID:            "BlueMarble_ShadedRelief_Bathymetry",
		Name:          "Blue Marble (Static)",
		Description:   "Static background map of Earth topography and bathymetry.",
		Format:        models.FormatJPG,
		MatrixSet:     level8,
		TimeParameter: "default",
		MaxZoom:       8,
	},
}

var defaultOverlayLayers = []models.Layer{
	{
		ID:            "Coastlines_15m",
		Name:          "Coastlines",
		Description:   "Major coastlines in red.",
		Format:        models.FormatPNG,
		MatrixSet:     level9,
		TimeParameter: "default",
	},
	{
		ID:            "Reference_Features_15m",
		Name:          "Borders & Roads",
		Description:   "Country borders and major roads.",
		Format:        models.FormatPNG,
		MatrixSet:     level9,
		TimeParameter: "default",
	},
	{
		ID:            "Reference_Labels_15m",
		Name:          "Place Labels",
		Description:   "City and country names.",
		Format:        models.FormatPNG,
		MatrixSet:     level9,
		TimeParameter: "default",
	},
	{
		ID:          "VIIRS_NOAA20_Thermal_Anomalies_375m_All",
		Name:        "Active Fires (VIIRS)",
		Description: "Thermal anomalies showing active fires (Red dots).",
		Format:      models.FormatPNG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Terra_Aerosol",
		Name:        "Aerosols (Dust/Smoke)",
		Description: "Particulates in the atmosphere like dust and smoke.",
		Format:      models.FormatPNG,
		MatrixSet:   level9,
	},
	{
		ID:          "MODIS_Terra_Chlorophyll_A",
		Name:        "Chlorophyll A",
		Description: "Ocean biology and phytoplankton concentrations.",
		Format:      models.FormatPNG,
		MatrixSet:   level9,
	},
	{
		ID:          "SMAP_L4_Soil_Moisture_Surface",
		Name:        "Soil Moisture (SMAP)",
		Description: "Surface soil moisture data (9km).",
		Format:      models.FormatPNG,
		MatrixSet:   level9,
	},
	{
		ID:          "AIRS_L3_Carbon_Monoxide_Day",
		Name:        "Carbon Monoxide (AIRS)",
		Description: "Atmospheric CO levels.",
		Format:      models.FormatPNG,
		MatrixSet:   level9,
	},
}

var defaultEvents = []models.DisasterEvent{
	{
		ID:          "maui-fires-2023",
		Name:        "Maui Wildfires",
		Date:        "2023-08-08",
		Location:    models.ViewState{Lat: 20.8, Lng: -156.3, Zoom: 10},
		Description: "Devastating wildfires in Lahaina, Hawaii.",
		BaseLayerID: "VIIRS_SNPP_CorrectedReflectance_TrueColor",
		OverlayIDs:  []string{"VIIRS_NOAA20_Thermal_Anomalies_375m_All", "Coastlines_15m"},
	},
	{
		ID:          "hurricane-ian-2022",
		Name:        "Hurricane Ian",
		Date:        "2022-09-28",
		Location:    models.ViewState{Lat: 26.5, Lng: -82.5, Zoom: 7},
		Description: "Category 5 hurricane making landfall in Florida.",
		BaseLayerID: "MODIS_Terra_CorrectedReflectance_TrueColor",
		OverlayIDs:  []string{"Coastlines_15m", "Reference_Features_15m"},
	},
	{
		ID:          "tonga-eruption-2022",
		Name:        "Hunga Tonga Eruption",
		Date:        "2022-01-15",
		Location:    models.ViewState{Lat: -20.5, Lng: -175.4, Zoom: 6},
		Description: "Massive volcanic eruption visible from space.",
		BaseLayerID: "VIIRS_SNPP_CorrectedReflectance_TrueColor",
		OverlayIDs:  []string{},
	},
	{
		ID:          "australian-bushfires-2020",
		Name:        "Australian Bushfires",
		Date:        "2020-01-04",
		Location:    models.ViewState{Lat: -36.0, Lng: 149.0, Zoom: 6},
		Description: "Black Summer bushfires in New South Wales.",
		BaseLayerID: "MODIS_Terra_CorrectedReflectance_Bands721",
		OverlayIDs:  []string{"VIIRS_NOAA20_Thermal_Anomalies_375m_All", "MODIS_Terra_Aerosol"},
	},
	{
		ID:          "hurricane-katrina-2005",
		Name:        "Hurricane Katrina",
		Date:        "2005-08-28",
		Location:    models.ViewState{Lat: 27.5, Lng: -89.0, Zoom: 6},
		Description: "Category 5 hurricane in the Gulf of Mexico.",
		BaseLayerID: "MODIS_Terra_CorrectedReflectance_TrueColor",
		OverlayIDs:  []string{"Coastlines_15m"},
	},
}

// DefaultOverlayIDs are the overlays active in a fresh session.
var DefaultOverlayIDs = []string{"Coastlines_15m", "Reference_Features_15m"}
