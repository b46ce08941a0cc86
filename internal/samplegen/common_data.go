package samplegen

// Shared lists for synthetic data generation.

var Specializations = []string{
	"Cardiology", "Neurology", "Pediatrics", "Oncology", "Orthopedics",
	"Dermatology", "Radiology", "Psychiatry", "Internal Medicine", "ENT",
}

var Degrees = []string{"MBBS", "MD", "MSc", "PhD", "Fellowship"}

var Grades = []string{"Excellent", "Very Good", "Good", "Pass"}

var DepartmentNames = []string{
	"Cardiology", "Neurology", "Pediatrics", "Oncology", "Orthopedics",
	"Emergency", "Radiology", "Intensive Care", "Surgery", "Maternity",
}

var Equipment = []string{
	"ECG Machine", "MRI Scanner", "CT Scanner", "X-Ray Machine", "Ventilator",
	"Defibrillator", "Ultrasound", "Infusion Pump", "Patient Monitor", "Dialysis Machine",
}

var Workplaces = []string{
	"Cairo University Hospital", "Ain Shams Hospital", "Dar Al Fouad", "Saudi German Hospital",
	"Alexandria Medical Center", "Private Clinic", "Nile Badrawi Hospital",
}

var Diagnoses = []string{
	"Hypertension", "Type 2 Diabetes Mellitus", "Hyperlipidemia", "Asthma",
	"Chronic Obstructive Pulmonary Disease", "Pneumonia", "Gastroesophageal Reflux Disease",
	"Chronic Kidney Disease", "Osteoarthritis", "Rheumatoid Arthritis", "Osteoporosis",
	"Migraine", "Major Depressive Disorder", "Generalized Anxiety Disorder", "Psoriasis",
	"Hypothyroidism", "Anemia (Iron deficiency)", "Gout", "Coronary Artery Disease",
	"Heart Failure", "Atrial Fibrillation", "Epilepsy", "Parkinson's Disease",
	"Alzheimer's Disease", "Ulcerative Colitis", "Crohn's Disease", "Celiac Disease",
	"Glaucoma", "Hepatitis (viral)", "Fatty Liver Disease (NAFLD)",
}

var DrugNames = []string{
	"Atorvastatin", "Levothyroxine", "Lisinopril", "Metformin", "Amlodipine",
	"Metoprolol", "Omeprazole", "Losartan", "Albuterol", "Gabapentin",
	"Sertraline", "Furosemide", "Prednisone", "Amoxicillin", "Warfarin",
	"Insulin Glargine", "Azithromycin", "Budesonide", "Methotrexate", "Allopurinol",
}

var Countries = []string{"Egypt", "Saudi Arabia", "Jordan", "UAE", "Kuwait", "Sudan"}
